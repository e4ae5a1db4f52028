package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

func TestRoomRepository_Insert(t *testing.T) {
	t.Run("Duplicate code is rejected", func(t *testing.T) {
		rooms := NewRoomRepository()

		// Given: a stored room
		require.NoError(t, rooms.Insert(entity.NewMatch("AAA111"), nil))

		// When: another room with the same code is inserted
		err := rooms.Insert(entity.NewMatch("AAA111"), nil)

		// Then: ErrRoomCodeTaken is returned
		require.ErrorIs(t, err, apperror.ErrRoomCodeTaken)
		assert.Equal(t, 1, rooms.Len())
	})

	t.Run("Codes keep creation order", func(t *testing.T) {
		rooms := NewRoomRepository()

		// Given: rooms inserted in a known order
		for _, code := range []string{"CCC333", "AAA111", "BBB222"} {
			require.NoError(t, rooms.Insert(entity.NewMatch(code), nil))
		}

		// When: codes are listed
		codes := rooms.Codes()

		// Then: they come back in insertion order
		assert.Equal(t, []string{"CCC333", "AAA111", "BBB222"}, codes)
	})

	t.Run("Callback runs before the room can be updated", func(t *testing.T) {
		rooms := NewRoomRepository()
		updated := make(chan error, 1)

		// When: a concurrent Update targets the room while the insert callback runs
		err := rooms.Insert(entity.NewMatch("AAA111"), func(match *entity.Match) {
			go func() {
				updated <- rooms.Update("AAA111", func(match *entity.Match) error {
					match.Round = 7
					return nil
				})
			}()

			select {
			case <-updated:
				t.Error("update ran while the insert callback held the room")
			case <-time.After(50 * time.Millisecond):
			}

			match.Round = 3
		})
		require.NoError(t, err)

		// Then: the update waited for the callback and applied afterwards
		select {
		case err = <-updated:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("update never ran")
		}

		require.NoError(t, rooms.Update("AAA111", func(match *entity.Match) error {
			assert.Equal(t, 7, match.Round)
			return nil
		}))
	})

	t.Run("Callback is skipped on collision", func(t *testing.T) {
		rooms := NewRoomRepository()
		require.NoError(t, rooms.Insert(entity.NewMatch("AAA111"), nil))

		err := rooms.Insert(entity.NewMatch("AAA111"), func(*entity.Match) {
			t.Error("callback must not run")
		})

		require.ErrorIs(t, err, apperror.ErrRoomCodeTaken)
	})
}

func TestRoomRepository_Update(t *testing.T) {
	t.Run("Unknown code", func(t *testing.T) {
		rooms := NewRoomRepository()

		// When: Update is called for a missing room
		err := rooms.Update("NOPE00", func(*entity.Match) error {
			t.Fatal("callback must not run")
			return nil
		})

		// Then: ErrRoomNotFound is returned
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Callback error is returned", func(t *testing.T) {
		rooms := NewRoomRepository()
		require.NoError(t, rooms.Insert(entity.NewMatch("AAA111"), nil))

		boom := errors.New("boom")

		// When: the callback fails
		err := rooms.Update("AAA111", func(*entity.Match) error {
			return boom
		})

		// Then: the error is passed through and the room stays
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, rooms.Len())
	})

	t.Run("Closed match is removed", func(t *testing.T) {
		rooms := NewRoomRepository()
		match := entity.NewMatch("AAA111")
		require.NoError(t, match.AddPlayer(entity.NewPlayer("alice-conn", "Alice")))
		require.NoError(t, rooms.Insert(match, nil))

		// When: the last player leaves inside Update
		err := rooms.Update("AAA111", func(match *entity.Match) error {
			match.RemovePlayer("alice-conn")
			return nil
		})

		// Then: the room is gone
		require.NoError(t, err)
		assert.Equal(t, 0, rooms.Len())
		err = rooms.Update("AAA111", func(*entity.Match) error { return nil })
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Concurrent moves resolve the round once", func(t *testing.T) {
		rooms := NewRoomRepository()
		match := entity.NewMatch("AAA111")
		require.NoError(t, match.AddPlayer(entity.NewPlayer("alice-conn", "Alice")))
		require.NoError(t, match.AddPlayer(entity.NewPlayer("bob-conn", "Bob")))
		require.NoError(t, rooms.Insert(match, nil))

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			resolved int
		)

		// When: both players submit at the same time
		for _, id := range []string{"alice-conn", "bob-conn"} {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_ = rooms.Update("AAA111", func(match *entity.Match) error {
					result, err := match.SubmitMove(id, entity.Rock)
					if result != nil {
						mu.Lock()
						resolved++
						mu.Unlock()
					}
					return err
				})
			}()
		}
		wg.Wait()

		// Then: exactly one submission resolved the round
		assert.Equal(t, 1, resolved)
		_ = rooms.Update("AAA111", func(match *entity.Match) error {
			assert.Len(t, match.RoundsHistory, 1)
			assert.Equal(t, 2, match.Round)
			return nil
		})
	})
}

func TestRoomRepository_DeleteIdle(t *testing.T) {
	t.Run("Only empty stale rooms are dropped", func(t *testing.T) {
		rooms := NewRoomRepository()
		now := time.Now()

		stale := entity.NewMatch("OLD000")
		stale.CreatedAt = now.Add(-time.Hour)
		require.NoError(t, rooms.Insert(stale, nil))

		occupied := entity.NewMatch("OCC000")
		occupied.CreatedAt = now.Add(-time.Hour)
		require.NoError(t, occupied.AddPlayer(entity.NewPlayer("alice-conn", "Alice")))
		require.NoError(t, rooms.Insert(occupied, nil))

		require.NoError(t, rooms.Insert(entity.NewMatch("NEW000"), nil))

		// When: idle rooms older than five minutes are deleted
		deleted := rooms.DeleteIdle(now, 5*time.Minute)

		// Then: only the stale empty room is gone
		assert.Equal(t, []string{"OLD000"}, deleted)
		assert.Equal(t, []string{"OCC000", "NEW000"}, rooms.Codes())
	})
}
