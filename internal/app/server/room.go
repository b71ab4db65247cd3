package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/domains/dtos"
	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/game"
	"github.com/tictacthree/tictacthree/internal/session"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

// handleGame serves one seated player's connection to a room. Snapshots
// are pushed as they commit; actions are read from the socket.
func (s *server) handleGame(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	roomId := chi.URLParam(r, "roomId")
	room, err := s.sessions.Get(r.Context(), roomId)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	symbol := game.ParseMark(room.SymbolOf(id.Id))
	if symbol == game.Empty {
		writeError(w, http.StatusForbidden, ErrStatusNotInRoom)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPlayer(conn, id, symbol)

	stop, err := s.sessions.Watch(ctx, roomId, symbol, session.WatchHandlers{
		OnChange: func(room entities.Room) {
			if err := p.writeJson(roomMessage{Type: "room", Room: roomResponse(room)}); err != nil {
				logging.Debug("failed to push room", zap.Error(err))
			}
		},
		OnOpponentLeft: func(room entities.Room) {
			p.writeJson(eventMessage{Type: "opponent_left"})
			p.close("opponent left")
		},
	})
	if err != nil {
		logging.Error("failed to watch room", zap.String("roomId", roomId), zap.Error(err))
		return
	}
	defer stop()

	logging.Info("player connected",
		zap.String("playerId", id.Id),
		zap.String("roomId", roomId),
		zap.String("symbol", string(symbol)),
	)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			logging.Info("connection closed",
				zap.String("remote_address", conn.RemoteAddr().String()),
				zap.Error(err),
			)
			return
		}
		var msg payload
		if err := json.Unmarshal(message, &msg); err != nil {
			p.writeJson(errorResponse{Type: "error", Error: ErrStatusInvalidPayload})
			continue
		}
		s.handleWebSocketMessage(ctx, roomId, p, msg)
	}
}

// handleMatchmaking searches until a pairing is found or the client goes
// away, which takes the player out of the queue.
func (s *server) handleMatchmaking(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPlayer(conn, id, game.Empty)

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	searching, err := s.pairer.CountSearching(ctx)
	if err != nil {
		logging.Warn("failed to count searching players", zap.Error(err))
	}
	p.writeJson(dtos.QueueResponse{Status: "searching", Searching: searching})

	pairing, err := s.pairer.Search(ctx, id.Id, id.Name)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.Error("matchmaking failed", zap.String("playerId", id.Id), zap.Error(err))
			p.writeJson(errorResponse{Type: "error", Error: ErrStatusInternal})
		}
		return
	}
	p.writeJson(dtos.NewMatchedMessage(
		pairing.RoomId,
		string(pairing.Symbol),
		pairing.OpponentId,
		pairing.OpponentName,
	))
	p.close("matched")
}
