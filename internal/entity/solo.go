package entity

import (
	"fmt"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
)

const (
	SoloPlayer = "player"
	SoloBot    = "bot"
	SoloDraw   = "draw"
)

type SoloRound struct {
	Round  int    `json:"round"`
	Player Choice `json:"player"`
	Bot    Choice `json:"bot"`
	Winner string `json:"winner"`
}

// SoloGame is a best-of-3 against the random bot. It follows the same rules as Match.
type SoloGame struct {
	Round       int         `json:"round"`
	PlayerScore int         `json:"playerScore"`
	BotScore    int         `json:"botScore"`
	Rounds      []SoloRound `json:"rounds"`
	Finished    bool        `json:"finished"`
	Winner      string      `json:"winner,omitempty"`
}

func NewSoloGame() *SoloGame {
	return &SoloGame{
		Round:  1,
		Rounds: []SoloRound{},
	}
}

func (that *SoloGame) Play(player, bot Choice) (SoloRound, error) {
	if that.Finished {
		return SoloRound{}, apperror.ErrGameFinished
	}

	if !player.Valid() || !bot.Valid() {
		return SoloRound{}, fmt.Errorf("%w: %q vs %q", apperror.ErrInvalidMove, player, bot)
	}

	round := SoloRound{Round: that.Round, Player: player, Bot: bot, Winner: SoloDraw}

	switch Resolve(player, bot) {
	case FirstWins:
		that.PlayerScore++
		round.Winner = SoloPlayer
	case SecondWins:
		that.BotScore++
		round.Winner = SoloBot
	case Draw:
	}

	that.Rounds = append(that.Rounds, round)
	that.Round++

	if IsGameOver(that.PlayerScore, that.BotScore, len(that.Rounds)) {
		that.Finished = true
		switch {
		case that.PlayerScore > that.BotScore:
			that.Winner = SoloPlayer
		case that.BotScore > that.PlayerScore:
			that.Winner = SoloBot
		default:
			that.Winner = SoloDraw
		}
	}

	return round, nil
}
