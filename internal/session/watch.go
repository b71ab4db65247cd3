package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/game"
	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

type WatchHandlers struct {
	// OnChange receives every room snapshot, starting with the current one.
	OnChange func(room entities.Room)
	// OnOpponentLeft fires once, LeaveGrace after the other side left.
	OnOpponentLeft func(room entities.Room)
}

// Watch follows a room on behalf of self until ctx ends or the returned
// function is called.
func (s *Session) Watch(
	ctx context.Context,
	roomId string,
	self game.Mark,
	h WatchHandlers,
) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	var leftOnce sync.Once

	onLeft := func(room entities.Room) {
		leftOnce.Do(func() {
			go func() {
				timer := time.NewTimer(s.cfg.LeaveGrace)
				defer timer.Stop()
				select {
				case <-ctx.Done():
				case <-timer.C:
					if h.OnOpponentLeft != nil {
						h.OnOpponentLeft(room)
					}
				}
			}()
		})
	}

	unsubscribe, err := s.store.Subscribe(ctx, store.RoomKey(roomId), func(snap store.Snapshot) {
		if !snap.Exists() {
			return
		}
		var room entities.Room
		if err := snap.Decode(&room); err != nil {
			logging.Error("failed to decode room snapshot",
				zap.String("roomId", roomId),
				zap.Error(err))
			return
		}
		if h.OnChange != nil {
			h.OnChange(room)
		}
		if room.Status == entities.RoomLeft && room.LeftBy != string(self) {
			onLeft(room)
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch room: %w", err)
	}
	return func() {
		unsubscribe()
		cancel()
	}, nil
}
