package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)

	CreateRoom(w http.ResponseWriter, r *http.Request)
	GetResult(w http.ResponseWriter, r *http.Request)
}

type roomManager interface {
	CreateRoom(ctx context.Context) (string, error)
	Result(ctx context.Context, code string) (*entity.GameOver, error)
}

type CreateRoomResponse struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	logger    *slog.Logger
	manager   roomManager
	clientURL string
}

// NewHandlers builds the REST handlers. Room links point at clientURL.
func NewHandlers(logger *slog.Logger, manager roomManager, clientURL string) Handlers {
	return &handlers{
		logger:    logger.With("component", "RestHandlers"),
		manager:   manager,
		clientURL: strings.TrimRight(clientURL, "/"),
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "CreateRoom")

	code, err := that.manager.CreateRoom(r.Context())
	if err != nil {
		log.Error("failed to create room", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to create room"})
		return
	}

	writeJSON(w, http.StatusOK, CreateRoomResponse{
		Code: code,
		URL:  that.clientURL + "/room/" + code,
	})
}

func (that *handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetResult")

	result, err := that.manager.Result(r.Context(), r.PathValue("code"))
	if errors.Is(err, apperror.ErrResultNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: apperror.ErrResultNotFound.Error()})
		return
	}

	if err != nil {
		log.Error("failed to get result", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to get result"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
