package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
)

func TestSoloGame_Play(t *testing.T) {
	t.Run("Player wins two rounds in a row", func(t *testing.T) {
		// Given: a new solo game
		game := NewSoloGame()

		// When: the player beats the bot twice
		first, err := game.Play(Rock, Scissors)
		require.NoError(t, err)
		second, err := game.Play(Paper, Rock)
		require.NoError(t, err)

		// Then: the game ends after two rounds with the player as winner
		assert.Equal(t, SoloPlayer, first.Winner)
		assert.Equal(t, SoloPlayer, second.Winner)
		assert.True(t, game.Finished)
		assert.Equal(t, SoloPlayer, game.Winner)
		assert.Equal(t, 2, game.PlayerScore)
		assert.Equal(t, 3, game.Round)
	})

	t.Run("Three draws end in a draw", func(t *testing.T) {
		// Given: a new solo game
		game := NewSoloGame()

		// When: three drawn rounds are played
		for range MaxRounds {
			_, err := game.Play(Rock, Rock)
			require.NoError(t, err)
		}

		// Then: the game is finished without a winner
		assert.True(t, game.Finished)
		assert.Equal(t, SoloDraw, game.Winner)
		assert.Len(t, game.Rounds, MaxRounds)
	})

	t.Run("Rejects moves after the game is finished", func(t *testing.T) {
		// Given: a finished solo game
		game := NewSoloGame()
		_, _ = game.Play(Scissors, Rock)
		_, _ = game.Play(Scissors, Rock)
		require.True(t, game.Finished)

		// When: another round is played
		_, err := game.Play(Rock, Paper)

		// Then: ErrGameFinished is returned
		require.ErrorIs(t, err, apperror.ErrGameFinished)
		assert.Equal(t, SoloBot, game.Winner)
	})

	t.Run("Rejects invalid moves", func(t *testing.T) {
		// Given: a new solo game
		game := NewSoloGame()

		// When: an unknown move is played
		_, err := game.Play(Choice("lizard"), Rock)

		// Then: ErrInvalidMove is returned and nothing changes
		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		assert.Equal(t, 1, game.Round)
		assert.Empty(t, game.Rounds)
	})
}
