package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
)

func newPlayingMatch(t *testing.T) *Match {
	t.Helper()

	match := NewMatch("ABC123")
	require.NoError(t, match.AddPlayer(NewPlayer("alice-conn", "Alice")))
	require.NoError(t, match.AddPlayer(NewPlayer("bob-conn", "Bob")))
	require.True(t, match.IsPlaying())

	return match
}

func TestMatch_AddPlayer(t *testing.T) {
	t.Run("Second player starts the game", func(t *testing.T) {
		// Given: a new match
		match := NewMatch("ABC123")

		// When: two players join
		require.NoError(t, match.AddPlayer(NewPlayer("alice-conn", "Alice")))
		assert.True(t, match.IsWaiting())
		require.NoError(t, match.AddPlayer(NewPlayer("bob-conn", "")))

		// Then: the match is playing with zeroed scores
		assert.True(t, match.IsPlaying())
		assert.Equal(t, map[string]int{"alice-conn": 0, "bob-conn": 0}, match.Scores)
		assert.Equal(t, "Player-bob-", match.Players[1].Name)
	})

	t.Run("Third player is rejected", func(t *testing.T) {
		// Given: a full match
		match := newPlayingMatch(t)

		// When: a third player joins
		err := match.AddPlayer(NewPlayer("carol-conn", "Carol"))

		// Then: ErrRoomFull is returned
		require.ErrorIs(t, err, apperror.ErrRoomFull)
		assert.Len(t, match.Players, MaxPlayers)
	})

	t.Run("Same connection cannot join twice", func(t *testing.T) {
		// Given: a match with one player
		match := NewMatch("ABC123")
		require.NoError(t, match.AddPlayer(NewPlayer("alice-conn", "Alice")))

		// When: the same connection joins again
		err := match.AddPlayer(NewPlayer("alice-conn", "Alice"))

		// Then: ErrAlreadyJoined is returned and the match keeps waiting
		require.ErrorIs(t, err, apperror.ErrAlreadyJoined)
		assert.True(t, match.IsWaiting())
	})
}

func TestMatch_SubmitMove(t *testing.T) {
	t.Run("First move is pending until the opponent plays", func(t *testing.T) {
		// Given: a playing match
		match := newPlayingMatch(t)

		// When: only Alice plays
		result, err := match.SubmitMove("alice-conn", Rock)

		// Then: nothing is resolved and the move is hidden in the snapshot
		require.NoError(t, err)
		assert.Nil(t, result)
		snapshot := match.Snapshot()
		assert.Equal(t, []string{"alice-conn"}, snapshot.Played)
		assert.Equal(t, 1, snapshot.Round)
	})

	t.Run("Overwrites a previous move within the round", func(t *testing.T) {
		// Given: Alice already played rock
		match := newPlayingMatch(t)
		_, err := match.SubmitMove("alice-conn", Rock)
		require.NoError(t, err)

		// When: Alice changes to paper and Bob plays rock
		_, err = match.SubmitMove("alice-conn", Paper)
		require.NoError(t, err)
		result, err := match.SubmitMove("bob-conn", Rock)

		// Then: the latest move is the one resolved
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, Paper, result.Players[0].Choice)
		require.NotNil(t, result.Winner)
		assert.Equal(t, "alice-conn", *result.Winner)
	})

	t.Run("Draw leaves scores untouched", func(t *testing.T) {
		// Given: a playing match
		match := newPlayingMatch(t)

		// When: both play rock
		_, _ = match.SubmitMove("alice-conn", Rock)
		result, err := match.SubmitMove("bob-conn", Rock)

		// Then: the round is a draw and the next round begins
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Nil(t, result.Winner)
		assert.Equal(t, 0, match.Scores["alice-conn"])
		assert.Equal(t, 0, match.Scores["bob-conn"])
		assert.Equal(t, 2, match.Round)
		assert.Empty(t, match.PendingChoices)
		assert.True(t, match.IsPlaying())
	})

	t.Run("Round result names the winning connection", func(t *testing.T) {
		// Given: a playing match
		match := newPlayingMatch(t)

		// When: rock beats scissors
		_, _ = match.SubmitMove("alice-conn", Rock)
		result, err := match.SubmitMove("bob-conn", Scissors)
		require.NoError(t, err)

		// Then: the encoded result carries winnerConnectionId
		body, err := json.Marshal(result)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"round": 1,
			"players": [
				{"connectionId": "alice-conn", "name": "Alice", "choice": "rock"},
				{"connectionId": "bob-conn", "name": "Bob", "choice": "scissors"}
			],
			"winnerConnectionId": "alice-conn"
		}`, string(body))
	})

	t.Run("Two wins finish the game", func(t *testing.T) {
		// Given: a playing match
		match := newPlayingMatch(t)

		// When: Bob wins two rounds
		for range 2 {
			_, _ = match.SubmitMove("alice-conn", Scissors)
			_, err := match.SubmitMove("bob-conn", Rock)
			require.NoError(t, err)
		}

		// Then: the match is finished with Bob as winner
		assert.True(t, match.IsFinished())
		assert.Equal(t, 2, match.Scores["bob-conn"])
		assert.Len(t, match.RoundsHistory, 2)
		winner := match.FinalWinner()
		require.NotNil(t, winner)
		assert.Equal(t, "bob-conn", *winner)

		// And: no further moves are accepted
		_, err := match.SubmitMove("alice-conn", Rock)
		require.ErrorIs(t, err, apperror.ErrMatchNotReady)
	})

	t.Run("Three rounds finish the game even without two wins", func(t *testing.T) {
		// Given: a playing match
		match := newPlayingMatch(t)

		// When: one win each and a draw are played
		plays := [][2]Choice{{Rock, Scissors}, {Rock, Paper}, {Paper, Paper}}
		for _, play := range plays {
			_, _ = match.SubmitMove("alice-conn", play[0])
			_, err := match.SubmitMove("bob-conn", play[1])
			require.NoError(t, err)
		}

		// Then: the match is finished as a tie
		assert.True(t, match.IsFinished())
		assert.Nil(t, match.FinalWinner())
		assert.Equal(t, 4, match.Round)
	})

	t.Run("Validation order", func(t *testing.T) {
		// Given: a waiting match with one player
		match := NewMatch("ABC123")
		require.NoError(t, match.AddPlayer(NewPlayer("alice-conn", "Alice")))

		// When: an invalid move is sent to a waiting match
		_, invalidErr := match.SubmitMove("alice-conn", Choice("lizard"))
		// And: a valid move is sent to a waiting match
		_, notReadyErr := match.SubmitMove("alice-conn", Rock)

		// Then: the move is checked before the status
		require.ErrorIs(t, invalidErr, apperror.ErrInvalidMove)
		require.ErrorIs(t, notReadyErr, apperror.ErrMatchNotReady)

		// When: a stranger plays in a playing match
		require.NoError(t, match.AddPlayer(NewPlayer("bob-conn", "Bob")))
		_, strangerErr := match.SubmitMove("carol-conn", Rock)

		// Then: ErrPlayerNotInMatch is returned
		require.ErrorIs(t, strangerErr, apperror.ErrPlayerNotInMatch)
		assert.Empty(t, match.PendingChoices)
	})
}

func TestMatch_RemovePlayer(t *testing.T) {
	t.Run("Leaving a playing match reverts it to waiting", func(t *testing.T) {
		// Given: a playing match where Alice has a pending move
		match := newPlayingMatch(t)
		_, _ = match.SubmitMove("alice-conn", Rock)

		// When: Bob leaves
		removed := match.RemovePlayer("bob-conn")

		// Then: the match waits again and pending moves are discarded
		assert.True(t, removed)
		assert.True(t, match.IsWaiting())
		assert.Empty(t, match.PendingChoices)
		assert.NotContains(t, match.Scores, "bob-conn")
		assert.False(t, match.IsClosed())
	})

	t.Run("Finished match stays finished", func(t *testing.T) {
		// Given: a finished match
		match := newPlayingMatch(t)
		for range 2 {
			_, _ = match.SubmitMove("alice-conn", Paper)
			_, _ = match.SubmitMove("bob-conn", Rock)
		}
		require.True(t, match.IsFinished())

		// When: Bob leaves and Carol takes the seat
		match.RemovePlayer("bob-conn")
		require.NoError(t, match.AddPlayer(NewPlayer("carol-conn", "Carol")))

		// Then: the status never leaves finished
		assert.True(t, match.IsFinished())
	})

	t.Run("Last player leaving closes the match", func(t *testing.T) {
		// Given: a match with one player
		match := NewMatch("ABC123")
		require.NoError(t, match.AddPlayer(NewPlayer("alice-conn", "Alice")))

		// When: Alice leaves twice
		first := match.RemovePlayer("alice-conn")
		second := match.RemovePlayer("alice-conn")

		// Then: the first call removes her and the match is closed
		assert.True(t, first)
		assert.False(t, second)
		assert.True(t, match.IsClosed())
		assert.Empty(t, match.Players)
	})
}

func TestMatch_IsIdle(t *testing.T) {
	t.Run("Empty old match is idle", func(t *testing.T) {
		// Given: a match created ten minutes ago
		match := NewMatch("ABC123")
		match.CreatedAt = time.Now().Add(-10 * time.Minute)

		// When / Then: it is idle until someone joins
		assert.True(t, match.IsIdle(time.Now(), 5*time.Minute))
		require.NoError(t, match.AddPlayer(NewPlayer("alice-conn", "Alice")))
		assert.False(t, match.IsIdle(time.Now(), 5*time.Minute))
	})

	t.Run("Fresh match is not idle", func(t *testing.T) {
		// Given: a match created just now
		match := NewMatch("ABC123")

		// When / Then: it is not idle
		assert.False(t, match.IsIdle(time.Now(), 5*time.Minute))
	})
}

func TestMatch_GameOver(t *testing.T) {
	t.Run("Summary carries the final winner and history", func(t *testing.T) {
		// Given: a match Alice won 2-0
		match := newPlayingMatch(t)
		for range 2 {
			_, _ = match.SubmitMove("alice-conn", Scissors)
			_, _ = match.SubmitMove("bob-conn", Paper)
		}

		// When: the summary is built
		summary := match.GameOver()

		// Then: it reflects the final state
		require.NotNil(t, summary.FinalWinner)
		assert.Equal(t, "alice-conn", *summary.FinalWinner)
		assert.Equal(t, "ABC123", summary.Code)
		assert.Len(t, summary.Rounds, 2)
		assert.Len(t, summary.Players, 2)
		assert.Equal(t, 2, summary.Scores["alice-conn"])
	})
}
