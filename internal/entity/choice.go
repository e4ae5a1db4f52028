package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
)

type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

// Choices lists every valid move.
var Choices = []Choice{Rock, Paper, Scissors}

// beats maps each move to the move it defeats.
var beats = map[Choice]Choice{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Outcome is the result of one round from the first player's point of view.
type Outcome int

const (
	Draw Outcome = iota
	FirstWins
	SecondWins
)

// ParseChoice accepts only rock, paper or scissors (case and surrounding space are ignored).
func ParseChoice(raw string) (Choice, error) {
	choice := Choice(strings.ToLower(strings.TrimSpace(raw)))
	if !choice.Valid() {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidMove, raw)
	}

	return choice, nil
}

func (that Choice) Valid() bool {
	_, ok := beats[that]
	return ok
}

func (that Choice) Beats(other Choice) bool {
	return beats[that] == other
}

// Resolve decides a round. Both the networked match and the solo game use it.
func Resolve(first, second Choice) Outcome {
	switch {
	case first == second:
		return Draw
	case first.Beats(second):
		return FirstWins
	default:
		return SecondWins
	}
}

const (
	WinningScore = 2
	MaxRounds    = 3
)

// IsGameOver is the best-of-3 rule: first to two round wins, or three rounds played.
func IsGameOver(firstScore, secondScore, roundsPlayed int) bool {
	return firstScore >= WinningScore || secondScore >= WinningScore || roundsPlayed >= MaxRounds
}
