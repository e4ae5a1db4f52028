package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

type SoloService interface {
	Play(connectionID string, choice entity.Choice) (entity.SoloRound, *entity.SoloGame, error)
	Reset(connectionID string) *entity.SoloGame
	Forget(connectionID string)
}

type chooser interface {
	Choose() entity.Choice
}

type soloService struct {
	logger *slog.Logger
	bot    chooser

	mu    sync.Mutex
	games map[string]*entity.SoloGame
}

// NewSoloService keeps one game against the bot per connection. Solo games never touch the room store.
func NewSoloService(logger *slog.Logger, bot chooser) SoloService {
	return &soloService{
		logger: logger,
		bot:    bot,
		games:  make(map[string]*entity.SoloGame),
	}
}

func (that *soloService) Play(connectionID string, choice entity.Choice) (entity.SoloRound, *entity.SoloGame, error) {
	log := that.logger.With("method", "Play", "connectionID", connectionID)

	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[connectionID]
	if !ok {
		game = entity.NewSoloGame()
		that.games[connectionID] = game
	}

	round, err := game.Play(choice, that.bot.Choose())
	if err != nil {
		return entity.SoloRound{}, nil, fmt.Errorf("failed to play solo round: %w", err)
	}

	if game.Finished {
		log.Info("solo game finished", "winner", game.Winner)
	}

	snapshot := *game
	snapshot.Rounds = append([]entity.SoloRound(nil), game.Rounds...)

	return round, &snapshot, nil
}

func (that *soloService) Reset(connectionID string) *entity.SoloGame {
	that.mu.Lock()
	defer that.mu.Unlock()

	game := entity.NewSoloGame()
	that.games[connectionID] = game

	snapshot := *game

	return &snapshot
}

func (that *soloService) Forget(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.games, connectionID)
}
