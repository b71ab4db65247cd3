package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/bot"
	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

const BotPlayerId = "bot"

// NormalizeCode upper-cases a room code and checks its alphabet.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 4 || len(code) > 16 {
		return "", ErrInvalidCode
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}

// create writes room under its id unless the code is already in use.
func (s *Session) create(ctx context.Context, room entities.Room) (Result, error) {
	key := store.RoomKey(room.Id)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(ctx, key)
		if err != nil {
			return err
		}
		if snap.Exists() {
			return reject(StatusRoomTaken)
		}
		return tx.Set(key, room)
	})

	var rej rejection
	switch {
	case err == nil:
		logging.Info("room created",
			zap.String("roomId", room.Id),
			zap.String("hostId", room.PlayerXId))
		return Result{Room: room}, nil
	case errors.As(err, &rej):
		return Result{Reason: rej.reason}, nil
	case errors.Is(err, store.ErrConflict):
		return Result{Reason: StatusRoomTaken}, nil
	default:
		return Result{}, fmt.Errorf("failed to create room: %w", err)
	}
}

// CreateRoom opens a waiting room under code with the host seated as X.
func (s *Session) CreateRoom(
	ctx context.Context,
	code string,
	hostId string,
	hostName string,
) (Result, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return Result{}, err
	}
	room := NewRoom(code, s.now())
	room.PlayerXId = hostId
	room.PlayerXName = hostName
	room.XReady = true
	return s.create(ctx, room)
}

// JoinRoom seats the guest as O and starts the first round.
func (s *Session) JoinRoom(
	ctx context.Context,
	code string,
	guestId string,
	guestName string,
) (Result, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "join room", code, func(room *entities.Room) error {
		if room.SymbolOf(guestId) != "" {
			return errUnchanged
		}
		if room.Private {
			return reject(StatusRoomPrivate)
		}
		if room.PlayerOId != "" {
			return reject(StatusRoomFull)
		}
		if room.Status != entities.RoomWaiting {
			return reject(StatusGameNotActive)
		}
		room.PlayerOId = guestId
		room.PlayerOName = guestName
		room.OReady = true
		room.Status = entities.RoomPlaying
		return nil
	})
}

// CreateBotRoom opens a private room where the bot plays O. The round starts
// immediately with the human to move.
func (s *Session) CreateBotRoom(
	ctx context.Context,
	code string,
	playerId string,
	playerName string,
	level bot.Difficulty,
) (Result, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return Result{}, err
	}
	room := NewRoom(code, s.now())
	room.PlayerXId = playerId
	room.PlayerXName = playerName
	room.PlayerOId = BotPlayerId
	room.PlayerOName = botName(level)
	room.XReady = true
	room.OReady = true
	room.Private = true
	room.BotLevel = level.String()
	room.Status = entities.RoomPlaying
	return s.create(ctx, room)
}

func botName(level bot.Difficulty) string {
	name := level.String()
	return strings.ToUpper(name[:1]) + name[1:] + " Bot"
}
