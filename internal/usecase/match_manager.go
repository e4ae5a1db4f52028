package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

const (
	EventRoomUpdate   = "roomUpdate"
	EventPlayerPlayed = "playerPlayed"
	EventRoundResult  = "roundResult"
	EventGameOver     = "gameOver"
	EventPlayerLeft   = "playerLeft"
)

const (
	codeLength          = 6
	defaultCodeAttempts = 8
)

var errSkipRoom = errors.New("room is not eligible")

type roomRepo interface {
	Insert(match *entity.Match, fn func(match *entity.Match)) error
	Update(code string, fn func(match *entity.Match) error) error
	Codes() []string
	DeleteIdle(now time.Time, ttl time.Duration) []string
}

type resultRepo interface {
	Save(ctx context.Context, result *entity.GameOver) error
	GetByCode(ctx context.Context, code string) (*entity.GameOver, error)
}

// broadcaster fans events out to the connections subscribed to a room code.
// Implementations must not block: it is called while the room is locked.
type broadcaster interface {
	Subscribe(code, connectionID string)
	Unsubscribe(code, connectionID string)
	Broadcast(code, event string, payload any)
}

type eventPublisher interface {
	Publish(code, event string, payload any) error
}

type roomEvent struct {
	code    string
	event   string
	payload any
}

// outbox holds the events of one room operation until the room is released.
type outbox []roomEvent

type ConnectionPayload struct {
	ConnectionID string `json:"connectionId"`
}

type RoundResultPayload struct {
	RoundResult entity.RoundResult `json:"roundResult"`
	Scores      map[string]int     `json:"scores"`
}

type QuickJoinResult struct {
	Code    string          `json:"code"`
	Waiting bool            `json:"waiting"`
	Match   entity.Snapshot `json:"match"`
}

// MatchManager owns every room operation. Operations on one room are serialized by the
// room repository; broadcasts are issued while the room is held so each room sees its
// events in mutation order. The external stream is fed after the room is released.
type MatchManager struct {
	logger    *slog.Logger
	rooms     roomRepo
	hub       broadcaster
	results   resultRepo
	publisher eventPublisher

	codeAttempts int
	newCode      func() string
}

func NewMatchManager(logger *slog.Logger, rooms roomRepo, hub broadcaster, results resultRepo, codeAttempts int) *MatchManager {
	if codeAttempts <= 0 {
		codeAttempts = defaultCodeAttempts
	}

	return &MatchManager{
		logger:  logger.With("component", "MatchManager"),
		rooms:   rooms,
		hub:     hub,
		results: results,

		codeAttempts: codeAttempts,
		newCode:      generateCode,
	}
}

// SetPublisher mirrors every room event to an external stream.
func (that *MatchManager) SetPublisher(publisher eventPublisher) {
	that.publisher = publisher
}

func generateCode() string {
	return strings.ToUpper(uuid.NewString()[:codeLength])
}

// NormalizeCode makes codes typed by hand match generated ones.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (that *MatchManager) CreateRoom(ctx context.Context) (string, error) {
	match, err := that.insertRoom(ctx, nil, nil)
	if err != nil {
		return "", err
	}

	return match.Code, nil
}

// insertRoom stores a new match under a fresh code, seating first when given.
// onInsert runs with the new room held, before anyone else can join it.
func (that *MatchManager) insertRoom(ctx context.Context, first *entity.Player, onInsert func(match *entity.Match)) (*entity.Match, error) {
	log := that.logger.With("method", "insertRoom")

	for range that.codeAttempts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		match := entity.NewMatch(that.newCode())
		if first != nil {
			if err := match.AddPlayer(first); err != nil {
				return nil, fmt.Errorf("failed to seat player: %w", err)
			}
		}

		err := that.rooms.Insert(match, onInsert)
		if errors.Is(err, apperror.ErrRoomCodeTaken) {
			log.Warn("room code collision", "code", match.Code)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to insert room: %w", err)
		}

		log.Info("room created", "code", match.Code)

		return match, nil
	}

	return nil, apperror.ErrCodeExhausted
}

func (that *MatchManager) JoinRoom(_ context.Context, code, connectionID, name string) (entity.Snapshot, error) {
	log := that.logger.With("method", "JoinRoom", "code", code, "connectionID", connectionID)

	var (
		snapshot entity.Snapshot
		events   outbox
	)

	err := that.rooms.Update(NormalizeCode(code), func(match *entity.Match) error {
		if err := match.AddPlayer(entity.NewPlayer(connectionID, name)); err != nil {
			return err
		}

		snapshot = that.seat(match, connectionID, &events)

		return nil
	})
	that.publish(events)

	if err != nil {
		log.Info("join rejected", "error", err)
		return entity.Snapshot{}, fmt.Errorf("failed to join room: %w", err)
	}

	log.Info("player joined", "status", snapshot.Status)

	return snapshot, nil
}

// QuickJoin seats the connection in the oldest room that waits for an opponent,
// or opens a new room for it. Pairing is first-come first-served on a best-effort basis.
func (that *MatchManager) QuickJoin(ctx context.Context, connectionID, name string) (QuickJoinResult, error) {
	log := that.logger.With("method", "QuickJoin", "connectionID", connectionID)

	for _, code := range that.rooms.Codes() {
		var (
			snapshot entity.Snapshot
			events   outbox
		)

		err := that.rooms.Update(code, func(match *entity.Match) error {
			if len(match.Players) != 1 || match.IsFinished() || match.HasPlayer(connectionID) {
				return errSkipRoom
			}

			if err := match.AddPlayer(entity.NewPlayer(connectionID, name)); err != nil {
				return err
			}

			snapshot = that.seat(match, connectionID, &events)

			return nil
		})
		that.publish(events)

		if err != nil {
			continue
		}

		log.Info("paired into waiting room", "code", code)

		return QuickJoinResult{Code: code, Waiting: snapshot.Status == entity.StatusWaiting, Match: snapshot}, nil
	}

	var (
		snapshot entity.Snapshot
		events   outbox
	)

	// the opener is subscribed before the room becomes visible to other quick-joiners
	match, err := that.insertRoom(ctx, entity.NewPlayer(connectionID, name), func(match *entity.Match) {
		snapshot = that.seat(match, connectionID, &events)
	})
	that.publish(events)

	if err != nil {
		return QuickJoinResult{}, fmt.Errorf("failed to open room: %w", err)
	}

	log.Info("opened waiting room", "code", match.Code)

	return QuickJoinResult{Code: match.Code, Waiting: snapshot.Status == entity.StatusWaiting, Match: snapshot}, nil
}

// seat subscribes the player to the room and announces the new roster. Room must be held.
func (that *MatchManager) seat(match *entity.Match, connectionID string, events *outbox) entity.Snapshot {
	that.hub.Subscribe(match.Code, connectionID)

	snapshot := match.Snapshot()
	that.emit(events, match.Code, EventRoomUpdate, snapshot)

	return snapshot
}

func (that *MatchManager) SubmitMove(ctx context.Context, code, connectionID, rawChoice string) error {
	log := that.logger.With("method", "SubmitMove", "code", code, "connectionID", connectionID)

	choice, err := entity.ParseChoice(rawChoice)
	if err != nil {
		log.Info("move rejected", "error", err)
		return fmt.Errorf("failed to submit move: %w", err)
	}

	var (
		gameOver *entity.GameOver
		events   outbox
	)

	err = that.rooms.Update(NormalizeCode(code), func(match *entity.Match) error {
		result, err := match.SubmitMove(connectionID, choice)
		if err != nil {
			return err
		}

		that.emit(&events, match.Code, EventPlayerPlayed, ConnectionPayload{ConnectionID: connectionID})

		if result == nil {
			return nil
		}

		that.emit(&events, match.Code, EventRoundResult, RoundResultPayload{
			RoundResult: *result,
			Scores:      match.Snapshot().Scores,
		})

		if match.IsFinished() {
			summary := match.GameOver()
			gameOver = &summary
			that.emit(&events, match.Code, EventGameOver, summary)

			return nil
		}

		that.emit(&events, match.Code, EventRoomUpdate, match.Snapshot())

		return nil
	})
	that.publish(events)

	if errors.Is(err, apperror.ErrRoomNotFound) {
		err = fmt.Errorf("%w: %s", apperror.ErrMatchNotFound, code)
	}

	if err != nil {
		log.Info("move rejected", "error", err)
		return fmt.Errorf("failed to submit move: %w", err)
	}

	if gameOver != nil {
		log.Info("game over", "winner", gameOver.FinalWinner)
		that.archive(ctx, gameOver)
	}

	return nil
}

func (that *MatchManager) archive(ctx context.Context, gameOver *entity.GameOver) {
	log := that.logger.With("method", "archive", "code", gameOver.Code)

	if err := that.results.Save(ctx, gameOver); err != nil {
		log.Error("failed to archive result", "error", err)
	}
}

// LeaveRoom removes the connection from the room. Leaving a room it is not seated in is a no-op.
func (that *MatchManager) LeaveRoom(_ context.Context, code, connectionID string) error {
	log := that.logger.With("method", "LeaveRoom", "code", code, "connectionID", connectionID)

	var events outbox

	err := that.rooms.Update(NormalizeCode(code), func(match *entity.Match) error {
		that.depart(match, connectionID, &events)
		return nil
	})
	that.publish(events)

	if errors.Is(err, apperror.ErrRoomNotFound) {
		log.Info("leave rejected", "error", err)
		return fmt.Errorf("failed to leave room: %w: %s", apperror.ErrMatchNotFound, code)
	}

	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

// HandleDisconnect drops the connection from every room it is seated in. Safe to repeat.
func (that *MatchManager) HandleDisconnect(_ context.Context, connectionID string) {
	log := that.logger.With("method", "HandleDisconnect", "connectionID", connectionID)

	for _, code := range that.rooms.Codes() {
		var (
			left   bool
			events outbox
		)

		// the room may vanish between listing and locking; that is fine
		_ = that.rooms.Update(code, func(match *entity.Match) error {
			left = that.depart(match, connectionID, &events)
			return nil
		})
		that.publish(events)

		if left {
			log.Info("removed disconnected player", "code", code)
		}
	}
}

// depart removes the player and notifies whoever is left. Room must be held.
func (that *MatchManager) depart(match *entity.Match, connectionID string, events *outbox) bool {
	if !match.RemovePlayer(connectionID) {
		return false
	}

	that.hub.Unsubscribe(match.Code, connectionID)

	if match.IsClosed() {
		return true
	}

	that.emit(events, match.Code, EventPlayerLeft, ConnectionPayload{ConnectionID: connectionID})
	that.emit(events, match.Code, EventRoomUpdate, match.Snapshot())

	return true
}

// emit broadcasts to the room now and queues the event for the external stream. Room must be held.
func (that *MatchManager) emit(events *outbox, code, event string, payload any) {
	that.hub.Broadcast(code, event, payload)

	if that.publisher != nil {
		*events = append(*events, roomEvent{code: code, event: event, payload: payload})
	}
}

// publish mirrors queued events. Call it after the room is released.
func (that *MatchManager) publish(events outbox) {
	for _, item := range events {
		if err := that.publisher.Publish(item.code, item.event, item.payload); err != nil {
			that.logger.Warn("failed to publish room event", "code", item.code, "event", item.event, "error", err)
		}
	}
}

// Result returns the archived summary of a finished match.
func (that *MatchManager) Result(ctx context.Context, code string) (*entity.GameOver, error) {
	result, err := that.results.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return result, nil
}

// CleanupIdle removes rooms that nobody joined within ttl.
func (that *MatchManager) CleanupIdle(now time.Time, ttl time.Duration) []string {
	deleted := that.rooms.DeleteIdle(now, ttl)
	if len(deleted) > 0 {
		that.logger.Info("expired idle rooms", "method", "CleanupIdle", "codes", deleted)
	}

	return deleted
}

// RunJanitor calls CleanupIdle every interval until ctx is done.
func (that *MatchManager) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			that.CleanupIdle(now, ttl)
		}
	}
}
