package repository

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

type RoomRepository interface {
	Insert(match *entity.Match, fn func(match *entity.Match)) error
	Update(code string, fn func(match *entity.Match) error) error
	Codes() []string
	DeleteIdle(now time.Time, ttl time.Duration) []string
	Len() int
}

// roomEntry guards one match. Lock order is entry then store.
type roomEntry struct {
	mu      sync.Mutex
	match   *entity.Match
	seq     uint64
	removed bool
}

type memRoom struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
	seq   uint64
}

// NewRoomRepository returns the in-memory store of live matches keyed by room code.
func NewRoomRepository() RoomRepository {
	return &memRoom{
		rooms: make(map[string]*roomEntry),
	}
}

// Insert stores a new match. fn, when not nil, runs with the room locked before any
// other caller can reach it.
func (that *memRoom) Insert(match *entity.Match, fn func(match *entity.Match)) error {
	entry := &roomEntry{match: match}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	that.mu.Lock()
	if _, ok := that.rooms[match.Code]; ok {
		that.mu.Unlock()
		return fmt.Errorf("%w: %s", apperror.ErrRoomCodeTaken, match.Code)
	}

	that.seq++
	entry.seq = that.seq
	that.rooms[match.Code] = entry
	that.mu.Unlock()

	if fn != nil {
		fn(match)
	}

	return nil
}

// Update runs fn with exclusive access to the match. A match that is closed after fn
// returns is removed from the store, even when fn fails.
func (that *memRoom) Update(code string, fn func(match *entity.Match) error) error {
	entry := that.entry(code)
	if entry == nil {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, code)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// deleted while we waited for the lock
	if entry.removed {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, code)
	}

	err := fn(entry.match)

	if entry.match.IsClosed() {
		that.remove(code, entry)
	}

	return err
}

// Codes lists room codes in creation order.
func (that *memRoom) Codes() []string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	type ordered struct {
		code string
		seq  uint64
	}

	list := make([]ordered, 0, len(that.rooms))
	for code, entry := range that.rooms {
		list = append(list, ordered{code: code, seq: entry.seq})
	}

	slices.SortFunc(list, func(a, b ordered) int {
		return cmp.Compare(a.seq, b.seq)
	})

	codes := make([]string, 0, len(list))
	for _, item := range list {
		codes = append(codes, item.code)
	}

	return codes
}

// DeleteIdle drops rooms that stayed empty for longer than ttl and returns their codes.
func (that *memRoom) DeleteIdle(now time.Time, ttl time.Duration) []string {
	var deleted []string

	for _, code := range that.Codes() {
		entry := that.entry(code)
		if entry == nil {
			continue
		}

		entry.mu.Lock()
		if !entry.removed && entry.match.IsIdle(now, ttl) {
			that.remove(code, entry)
			deleted = append(deleted, code)
		}
		entry.mu.Unlock()
	}

	return deleted
}

func (that *memRoom) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}

func (that *memRoom) entry(code string) *roomEntry {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.rooms[code]
}

// remove must be called with entry.mu held.
func (that *memRoom) remove(code string, entry *roomEntry) {
	entry.removed = true

	that.mu.Lock()
	if that.rooms[code] == entry {
		delete(that.rooms, code)
	}
	that.mu.Unlock()
}
