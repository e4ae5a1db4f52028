package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
	"github.com/rocketscienceinc/rps-backend/internal/usecase"
)

type matchManager interface {
	JoinRoom(ctx context.Context, code, connectionID, name string) (entity.Snapshot, error)
	QuickJoin(ctx context.Context, connectionID, name string) (usecase.QuickJoinResult, error)
	SubmitMove(ctx context.Context, code, connectionID, choice string) error
	LeaveRoom(ctx context.Context, code, connectionID string) error
	HandleDisconnect(ctx context.Context, connectionID string)
}

type soloService interface {
	Play(connectionID string, choice entity.Choice) (entity.SoloRound, *entity.SoloGame, error)
	Reset(connectionID string) *entity.SoloGame
	Forget(connectionID string)
}

type handlerFunc func(ctx context.Context, client *Client, message *Message) error

type Server struct {
	logger   *slog.Logger
	hub      *Hub
	manager  matchManager
	solo     soloService
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc

	// conns tracks serveWS calls so shutdown can wait for every disconnect to finish.
	conns sync.WaitGroup
}

func New(logger *slog.Logger, hub *Hub, manager matchManager, solo soloService) *Server {
	server := &Server{
		logger:  logger.With("component", "WebSocketServer"),
		hub:     hub,
		manager: manager,
		solo:    solo,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers["joinRoom"] = server.handleJoinRoom
	server.handlers["quickJoin"] = server.handleQuickJoin
	server.handlers["play"] = server.handlePlay
	server.handlers["leaveRoom"] = server.handleLeaveRoom
	server.handlers["soloPlay"] = server.handleSoloPlay
	server.handlers["soloReset"] = server.handleSoloReset

	return server
}

// Handler serves the websocket endpoint. Connections share ctx.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveWS(ctx, w, r)
	})

	return mux
}

// Start serves websockets on port until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return that.Serve(ctx, listener)
}

// Serve accepts websocket connections on listener. Once ctx is cancelled it stops accepting,
// closes every client and returns after their disconnects have been handled.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		that.logger.Error("failed to shutdown websocket server", "error", err)
	}

	that.Close()

	return nil
}

// Close disconnects every client and waits until their rooms have been left.
func (that *Server) Close() {
	that.hub.Close()
	that.conns.Wait()

	that.logger.Info("websocket server stopped")
}

func (that *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS")

	that.conns.Add(1)
	defer that.conns.Done()

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(uuid.NewString(), conn)
	if !that.hub.register(client) {
		log.Info("hub closed, rejecting connection")
		_ = conn.Close()
		return
	}

	log.Info("websocket connection established", "connectionID", client.id)

	go client.writeLoop()

	that.reply(client, EventConnected, "", usecase.ConnectionPayload{ConnectionID: client.id})

	client.readLoop(ctx, that)

	that.disconnect(ctx, client)
}

// disconnect runs once the read loop ends, whatever the reason.
func (that *Server) disconnect(ctx context.Context, client *Client) {
	that.hub.unregister(client)
	that.manager.HandleDisconnect(context.WithoutCancel(ctx), client.id)
	that.solo.Forget(client.id)

	that.logger.Info("websocket connection closed", "connectionID", client.id)
}

func (that *Server) dispatch(ctx context.Context, client *Client, message *Message) {
	log := that.logger.With("method", "dispatch", "connectionID", client.id, "action", message.Action)

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action")
		that.reply(client, message.Action, message.ID, Ack{Error: "unknown action"})
		return
	}

	if err := handler(ctx, client, message); err != nil {
		log.Error("error processing message", "error", err)
	}
}

func (that *Server) reply(client *Client, action, id string, payload any) {
	log := that.logger.With("method", "reply", "connectionID", client.id, "action", action)

	message, err := encode(action, id, payload)
	if err != nil {
		log.Error("failed to encode reply", "error", err)
		return
	}

	if !that.hub.Send(client.id, message) {
		log.Warn("reply dropped")
	}
}

func (that *Server) replyError(client *Client, message *Message, err error) {
	that.reply(client, message.Action, message.ID, Ack{Error: errorMessage(err)})
}
