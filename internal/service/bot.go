package service

import (
	"math/rand"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

type BotService interface {
	Choose() entity.Choice
}

type botService struct{}

func NewBotService() BotService {
	return &botService{}
}

// Choose picks a move uniformly at random.
func (that *botService) Choose() entity.Choice {
	return entity.Choices[rand.Intn(len(entity.Choices))] //nolint: gosec // it's ok
}
