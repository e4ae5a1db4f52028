package entity

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

const MaxPlayers = 2

type RoundPlayer struct {
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
	Choice       Choice `json:"choice"`
}

// RoundResult is appended once per resolved round and never modified afterwards.
type RoundResult struct {
	Round   int            `json:"round"`
	Players [2]RoundPlayer `json:"players"`
	Winner  *string        `json:"winnerConnectionId"`
}

// Match is the state of one room. It is not safe for concurrent use; the room
// store serializes access per code.
type Match struct {
	Code           string
	Players        []*Player
	Scores         map[string]int
	Round          int
	PendingChoices map[string]Choice
	RoundsHistory  []RoundResult
	Status         Status
	CreatedAt      time.Time

	closed bool
}

func NewMatch(code string) *Match {
	return &Match{
		Code:           code,
		Players:        make([]*Player, 0, MaxPlayers),
		Scores:         make(map[string]int, MaxPlayers),
		Round:          1,
		PendingChoices: make(map[string]Choice, MaxPlayers),
		Status:         StatusWaiting,
		CreatedAt:      time.Now(),
	}
}

func (that *Match) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Match) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Match) IsFinished() bool {
	return that.Status == StatusFinished
}

// IsClosed reports whether the last player has left. Closed matches are dropped from the store.
func (that *Match) IsClosed() bool {
	return that.closed
}

// IsIdle reports an empty room that nobody joined within ttl.
func (that *Match) IsIdle(now time.Time, ttl time.Duration) bool {
	return len(that.Players) == 0 && now.Sub(that.CreatedAt) > ttl
}

func (that *Match) HasPlayer(connectionID string) bool {
	return that.playerIndex(connectionID) != -1
}

func (that *Match) playerIndex(connectionID string) int {
	return slices.IndexFunc(that.Players, func(p *Player) bool {
		return p.ConnectionID == connectionID
	})
}

// AddPlayer seats a player. The second player starts the game unless the match already finished.
func (that *Match) AddPlayer(player *Player) error {
	if that.HasPlayer(player.ConnectionID) {
		return apperror.ErrAlreadyJoined
	}

	if len(that.Players) >= MaxPlayers {
		return fmt.Errorf("%w: %s", apperror.ErrRoomFull, that.Code)
	}

	that.Players = append(that.Players, player)
	that.Scores[player.ConnectionID] = 0

	if len(that.Players) == MaxPlayers && !that.IsFinished() {
		that.Status = StatusPlaying
	}

	return nil
}

// RemovePlayer drops the player, its score and every pending choice.
// It returns false when the connection was not seated here.
func (that *Match) RemovePlayer(connectionID string) bool {
	idx := that.playerIndex(connectionID)
	if idx == -1 {
		return false
	}

	that.Players = slices.Delete(that.Players, idx, idx+1)
	delete(that.Scores, connectionID)
	clear(that.PendingChoices)

	switch {
	case len(that.Players) == 0:
		that.closed = true
	case that.IsPlaying():
		that.Status = StatusWaiting
	}

	return true
}

// SubmitMove records a move for the current round. When every seated player has
// moved the round is resolved and its result returned; otherwise the result is nil.
func (that *Match) SubmitMove(connectionID string, choice Choice) (*RoundResult, error) {
	if !choice.Valid() {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidMove, choice)
	}

	if !that.IsPlaying() {
		return nil, fmt.Errorf("%w: status %s", apperror.ErrMatchNotReady, that.Status)
	}

	if !that.HasPlayer(connectionID) {
		return nil, apperror.ErrPlayerNotInMatch
	}

	that.PendingChoices[connectionID] = choice

	if len(that.PendingChoices) < len(that.Players) {
		return nil, nil
	}

	result := that.resolveRound()

	return &result, nil
}

func (that *Match) resolveRound() RoundResult {
	first, second := that.Players[0], that.Players[1]
	firstChoice := that.PendingChoices[first.ConnectionID]
	secondChoice := that.PendingChoices[second.ConnectionID]

	var winner *string
	switch Resolve(firstChoice, secondChoice) {
	case FirstWins:
		winner = &first.ConnectionID
	case SecondWins:
		winner = &second.ConnectionID
	case Draw:
	}

	result := RoundResult{
		Round: that.Round,
		Players: [2]RoundPlayer{
			{ConnectionID: first.ConnectionID, Name: first.Name, Choice: firstChoice},
			{ConnectionID: second.ConnectionID, Name: second.Name, Choice: secondChoice},
		},
	}
	if winner != nil {
		id := *winner
		result.Winner = &id
		that.Scores[id]++
	}

	that.RoundsHistory = append(that.RoundsHistory, result)
	clear(that.PendingChoices)
	that.Round++

	if IsGameOver(that.Scores[first.ConnectionID], that.Scores[second.ConnectionID], len(that.RoundsHistory)) {
		that.Status = StatusFinished
	}

	return result
}

// FinalWinner is the player with the strictly higher score, nil on a tie.
func (that *Match) FinalWinner() *string {
	var (
		best   *string
		top    = -1
		shared bool
	)

	for _, player := range that.Players {
		score := that.Scores[player.ConnectionID]
		switch {
		case score > top:
			id := player.ConnectionID
			best, top, shared = &id, score, false
		case score == top:
			shared = true
		}
	}

	if shared {
		return nil
	}

	return best
}

// Snapshot is the wire view of a match. Pending move values are withheld; only who has played is shown.
type Snapshot struct {
	Code          string         `json:"code"`
	Players       []Player       `json:"players"`
	Scores        map[string]int `json:"scores"`
	Round         int            `json:"round"`
	Played        []string       `json:"played"`
	RoundsHistory []RoundResult  `json:"roundsHistory"`
	Status        Status         `json:"status"`
}

func (that *Match) Snapshot() Snapshot {
	played := make([]string, 0, len(that.PendingChoices))
	for _, player := range that.Players {
		if _, ok := that.PendingChoices[player.ConnectionID]; ok {
			played = append(played, player.ConnectionID)
		}
	}

	return Snapshot{
		Code:          that.Code,
		Players:       that.roster(),
		Scores:        maps.Clone(that.Scores),
		Round:         that.Round,
		Played:        played,
		RoundsHistory: slices.Clone(that.RoundsHistory),
		Status:        that.Status,
	}
}

// GameOver is broadcast and archived once the match finishes.
type GameOver struct {
	Code        string         `json:"code"`
	FinalWinner *string        `json:"finalWinner"`
	Scores      map[string]int `json:"scores"`
	Rounds      []RoundResult  `json:"rounds"`
	Players     []Player       `json:"players"`
	FinishedAt  time.Time      `json:"finishedAt"`
}

func (that *Match) GameOver() GameOver {
	return GameOver{
		Code:        that.Code,
		FinalWinner: that.FinalWinner(),
		Scores:      maps.Clone(that.Scores),
		Rounds:      slices.Clone(that.RoundsHistory),
		Players:     that.roster(),
		FinishedAt:  time.Now(),
	}
}

func (that *Match) roster() []Player {
	players := make([]Player, 0, len(that.Players))
	for _, player := range that.Players {
		players = append(players, *player)
	}

	return players
}
