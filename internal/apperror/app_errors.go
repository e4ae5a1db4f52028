package apperror

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room full")
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchNotReady    = errors.New("match not ready")
	ErrInvalidMove      = errors.New("invalid move")
	ErrPlayerNotInMatch = errors.New("player is not in this match")
	ErrAlreadyJoined    = errors.New("already joined this room")

	ErrRoomCodeTaken = errors.New("room code already taken")
	ErrCodeExhausted = errors.New("could not generate a free room code")

	ErrGameFinished   = errors.New("game is already finished")
	ErrResultNotFound = errors.New("result not found")
)
