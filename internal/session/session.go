// Package session owns the state transitions of one online room. Every
// mutation is a read-validate-write transaction on the room document.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/game"
	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

const DefaultLeaveGrace = 2 * time.Second

type Config struct {
	DrawTurnLimit int
	LeaveGrace    time.Duration
}

// Result is the outcome of an accepted or ignored action. Room is the
// state after the action, or the state that caused the rejection.
type Result struct {
	Reason string
	Room   entities.Room
}

func (r Result) Accepted() bool {
	return r.Reason == StatusAccepted
}

type Session struct {
	store store.Store
	cfg   Config
	now   func() time.Time
}

func New(s store.Store, cfg Config) *Session {
	if cfg.DrawTurnLimit <= 0 {
		cfg.DrawTurnLimit = game.DefaultDrawTurnLimit
	}
	if cfg.LeaveGrace <= 0 {
		cfg.LeaveGrace = DefaultLeaveGrace
	}
	return &Session{store: s, cfg: cfg, now: time.Now}
}

// SetClock replaces the clock used for room timestamps.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// errUnchanged ends a transaction without writing while still reporting
// the action as accepted.
var errUnchanged = errors.New("unchanged")

// mutate runs fn against the room inside one transaction. fn returns nil
// to write the room back, errUnchanged to write nothing, or a rejection.
func (s *Session) mutate(
	ctx context.Context,
	action string,
	roomId string,
	fn func(room *entities.Room) error,
) (Result, error) {
	var (
		before entities.Room
		after  entities.Room
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(ctx, store.RoomKey(roomId))
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return ErrRoomNotFound
		}
		before = entities.Room{}
		if err := snap.Decode(&before); err != nil {
			return err
		}
		after = before
		after.Board = append([]string(nil), before.Board...)
		after.PlayerXMarks = append([]int(nil), before.PlayerXMarks...)
		after.PlayerOMarks = append([]int(nil), before.PlayerOMarks...)
		if err := fn(&after); err != nil {
			return err
		}
		after.UpdatedAt = s.now()
		return tx.Set(store.RoomKey(roomId), after)
	})

	var rej rejection
	switch {
	case err == nil:
		return Result{Room: after}, nil
	case errors.Is(err, errUnchanged):
		return Result{Room: before}, nil
	case errors.As(err, &rej):
		logging.Debug("action rejected",
			zap.String("action", action),
			zap.String("roomId", roomId),
			zap.String("reason", rej.reason))
		return Result{Reason: rej.reason, Room: before}, nil
	case errors.Is(err, store.ErrConflict):
		logging.Debug("action lost a race",
			zap.String("action", action),
			zap.String("roomId", roomId))
		return Result{Reason: StatusConflict}, nil
	case errors.Is(err, ErrRoomNotFound):
		return Result{}, fmt.Errorf("%s: %w", roomId, ErrRoomNotFound)
	default:
		return Result{}, fmt.Errorf("failed to %s: %w", action, err)
	}
}

// SubmitMove places mover's mark at index. Invalid moves and lost races are
// reported through Result.Reason and leave the room unchanged.
func (s *Session) SubmitMove(
	ctx context.Context,
	roomId string,
	mover game.Mark,
	index int,
) (Result, error) {
	return s.mutate(ctx, "submit move", roomId, func(room *entities.Room) error {
		if room.Status != entities.RoomPlaying {
			return reject(StatusGameNotActive)
		}
		if !mover.Valid() {
			return reject(StatusInvalidPlayer)
		}
		if game.ParseMark(room.CurrentPlayer) != mover {
			return reject(StatusWrongTurn)
		}
		if index < 0 || index >= len(game.Board{}) {
			return reject(StatusInvalidCell)
		}
		board := boardOf(*room)
		if board[index] != game.Empty {
			return reject(StatusCellOccupied)
		}

		res, ok := game.ApplyMove(board, queuesOf(*room), mover, index)
		if !ok {
			return reject(StatusInvalidCell)
		}
		setBoard(room, res.Board)
		setQueues(room, res.Queues)
		room.TurnCount++
		room.LastEvicted = res.Evicted

		if line, winner := game.WinningLine(res.Board); winner != game.Empty {
			room.Winner = string(winner)
			room.WinningLine = line[:]
			room.Status = entities.RoomFinished
			if winner == game.X {
				room.XScore++
			} else {
				room.OScore++
			}
			return nil
		}
		if game.DetectDraw(res.Board, room.TurnCount, s.cfg.DrawTurnLimit) {
			room.Winner = entities.WinnerDraw
			room.Status = entities.RoomFinished
			return nil
		}
		room.CurrentPlayer = string(mover.Opponent())
		return nil
	})
}

// RequestRematch flags who's wish to play again. It is only valid once a
// round has finished.
func (s *Session) RequestRematch(
	ctx context.Context,
	roomId string,
	who game.Mark,
) (Result, error) {
	return s.mutate(ctx, "request rematch", roomId, func(room *entities.Room) error {
		if room.Status != entities.RoomFinished {
			return reject(StatusGameNotActive)
		}
		if !who.Valid() {
			return reject(StatusInvalidPlayer)
		}
		if room.RematchRequested {
			return errUnchanged
		}
		room.RematchRequested = true
		room.RematchBy = string(who)
		return nil
	})
}

// ResolveRematch starts the next round of a finished room with a pending
// rematch request. Without one it does nothing.
func (s *Session) ResolveRematch(ctx context.Context, roomId string) (Result, error) {
	return s.mutate(ctx, "resolve rematch", roomId, func(room *entities.Room) error {
		if !room.RematchRequested || room.Status != entities.RoomFinished {
			return errUnchanged
		}
		clearRound(room, NextStarter(*room))
		room.Round++
		room.Status = entities.RoomPlaying
		return nil
	})
}

// Leave marks the room abandoned by who. Leaving an abandoned room again
// is accepted and changes nothing.
func (s *Session) Leave(ctx context.Context, roomId string, who game.Mark) (Result, error) {
	return s.mutate(ctx, "leave", roomId, func(room *entities.Room) error {
		if !who.Valid() {
			return reject(StatusInvalidPlayer)
		}
		if room.Status == entities.RoomLeft {
			return errUnchanged
		}
		room.Status = entities.RoomLeft
		room.LeftBy = string(who)
		room.RematchRequested = false
		room.RematchBy = ""
		if who == game.X {
			room.XReady = false
		} else {
			room.OReady = false
		}
		return nil
	})
}

// Get returns the current room document.
func (s *Session) Get(ctx context.Context, roomId string) (entities.Room, error) {
	snap, err := s.store.Get(ctx, store.RoomKey(roomId))
	if err != nil {
		return entities.Room{}, fmt.Errorf("failed to get room: %w", err)
	}
	if !snap.Exists() {
		return entities.Room{}, fmt.Errorf("%s: %w", roomId, ErrRoomNotFound)
	}
	var room entities.Room
	if err := snap.Decode(&room); err != nil {
		return entities.Room{}, err
	}
	return room, nil
}
