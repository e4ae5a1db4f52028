package websocket

import (
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

const EventConnected = "connected"

const errInternal = "internal error"

// Message is the envelope for every frame in both directions. Acks reuse the
// command's action and id; server pushes carry no id.
type Message struct {
	Action  string          `json:"action"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRoomRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type QuickJoinRequest struct {
	Name string `json:"name"`
}

type PlayRequest struct {
	Code   string `json:"code"`
	Choice string `json:"choice"`
}

type LeaveRoomRequest struct {
	Code string `json:"code"`
}

type SoloPlayRequest struct {
	Choice string `json:"choice"`
}

type SoloState struct {
	Round *entity.SoloRound `json:"round,omitempty"`
	Game  *entity.SoloGame  `json:"game"`
}

type Ack struct {
	OK      bool             `json:"ok,omitempty"`
	Error   string           `json:"error,omitempty"`
	Code    string           `json:"code,omitempty"`
	Waiting *bool            `json:"waiting,omitempty"`
	Match   *entity.Snapshot `json:"match,omitempty"`
	Solo    *SoloState       `json:"solo,omitempty"`
}

// clientErrors are reported to the client verbatim; anything else is hidden behind errInternal.
var clientErrors = []error{
	apperror.ErrRoomNotFound,
	apperror.ErrRoomFull,
	apperror.ErrMatchNotFound,
	apperror.ErrMatchNotReady,
	apperror.ErrInvalidMove,
	apperror.ErrPlayerNotInMatch,
	apperror.ErrAlreadyJoined,
	apperror.ErrGameFinished,
}

func errorMessage(err error) string {
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return errInternal
}

func encode(action, id string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Action: action, ID: id, Payload: body})
}
