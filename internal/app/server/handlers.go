package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/bot"
	"github.com/tictacthree/tictacthree/internal/domains/dtos"
	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/game"
	"github.com/tictacthree/tictacthree/internal/session"
	"github.com/tictacthree/tictacthree/pkg/logging"
	"github.com/tictacthree/tictacthree/pkg/utils"
)

const roomCodeLength = 6

type roomMessage struct {
	Type string            `json:"type"`
	Room dtos.RoomResponse `json:"room"`
}

type eventMessage struct {
	Type string `json:"type"`
}

func roomResponse(room entities.Room) dtos.RoomResponse {
	next := game.NoEviction
	if room.Status == entities.RoomPlaying {
		mover := game.ParseMark(room.CurrentPlayer)
		next = game.NextEviction(session.Queues(room).Of(mover))
	}
	return dtos.RoomResponseFromEntity(room, next)
}

func decodeRoomRequest(r *http.Request) (dtos.RoomRequest, error) {
	var req dtos.RoomRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return req, nil
	}
	return req, err
}

func displayName(req dtos.RoomRequest, id identity) string {
	if req.DisplayName != "" {
		return req.DisplayName
	}
	return id.Name
}

func (s *server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	req, err := decodeRoomRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrStatusInvalidPayload)
		return
	}
	code := req.Code
	if code == "" {
		code = utils.GenerateRoomCode(roomCodeLength)
	}
	res, err := s.sessions.CreateRoom(r.Context(), code, id.Id, displayName(req, id))
	if err != nil {
		logging.Error("failed to create room", zap.Error(err))
		writeError(w, statusForError(err), err.Error())
		return
	}
	if !res.Accepted() {
		writeError(w, http.StatusConflict, res.Reason)
		return
	}
	writeJson(w, http.StatusCreated, roomResponse(res.Room))
}

func (s *server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	req, err := decodeRoomRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrStatusInvalidPayload)
		return
	}
	res, err := s.sessions.JoinRoom(r.Context(), chi.URLParam(r, "roomId"), id.Id, displayName(req, id))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	if !res.Accepted() {
		writeError(w, http.StatusConflict, res.Reason)
		return
	}
	writeJson(w, http.StatusOK, roomResponse(res.Room))
}

func (s *server) handleCreateBotRoom(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	req, err := decodeRoomRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrStatusInvalidPayload)
		return
	}
	level, err := bot.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.sessions.CreateBotRoom(
		r.Context(),
		utils.GenerateRoomCode(roomCodeLength),
		id.Id,
		displayName(req, id),
		level,
	)
	if err != nil {
		logging.Error("failed to create bot room", zap.Error(err))
		writeError(w, statusForError(err), err.Error())
		return
	}
	if !res.Accepted() {
		writeError(w, http.StatusConflict, res.Reason)
		return
	}
	if err := s.startBot(res.Room); err != nil {
		logging.Error("failed to start bot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrStatusInternal)
		return
	}
	writeJson(w, http.StatusCreated, roomResponse(res.Room))
}

func (s *server) handleGetRank(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	standing, err := s.tracker.EnsureSeason(r.Context(), id.Id)
	if err != nil {
		logging.Error("failed to get season rank", zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrStatusInternal)
		return
	}
	writeJson(w, http.StatusOK, dtos.SeasonRankResponseFromEntity(standing))
}

// Handler for when a player sends a message on a room connection
func (s *server) handleWebSocketMessage(ctx context.Context, roomId string, p *player, payload payload) {
	if payload.Type != "game_data" {
		logging.Info("invalid payload type:", zap.String("type", payload.Type))
		p.writeJson(errorResponse{Type: "error", Error: ErrStatusInvalidPayload})
		return
	}
	action := payload.Data["action"]
	switch action {
	case "move":
		s.handleMove(ctx, roomId, p, payload.Data["cell"])
	case "rematch":
		s.handleRematch(ctx, roomId, p)
	case "leave":
		s.handleLeave(ctx, roomId, p)
	default:
		logging.Info("invalid game action:", zap.String("action", action))
		p.writeJson(errorResponse{Type: "error", Error: ErrStatusInvalidAction})
		return
	}
	logging.Debug("game data",
		zap.String("roomId", roomId),
		zap.String("playerId", p.Id),
		zap.String("action", action),
	)
}

func (s *server) reply(p *player, res session.Result, err error) bool {
	if err != nil {
		logging.Error("room action failed", zap.String("playerId", p.Id), zap.Error(err))
		p.writeJson(errorResponse{Type: "error", Error: ErrStatusInternal})
		return false
	}
	if !res.Accepted() {
		p.writeJson(errorResponse{Type: "error", Error: res.Reason})
		return false
	}
	return true
}

func (s *server) handleMove(ctx context.Context, roomId string, p *player, cell string) {
	index, err := strconv.Atoi(cell)
	if err != nil {
		p.writeJson(errorResponse{Type: "error", Error: ErrStatusInvalidCell})
		return
	}
	res, err := s.sessions.SubmitMove(ctx, roomId, p.Symbol, index)
	if !s.reply(p, res, err) {
		return
	}
	s.handleRoundEnd(ctx, res.Room)
}

// handleRematch requests a rematch, or accepts the opponent's request.
func (s *server) handleRematch(ctx context.Context, roomId string, p *player) {
	room, err := s.sessions.Get(ctx, roomId)
	if err != nil {
		s.reply(p, session.Result{}, err)
		return
	}
	if room.RematchRequested && room.RematchBy != string(p.Symbol) {
		res, err := s.sessions.ResolveRematch(ctx, roomId)
		s.reply(p, res, err)
		return
	}
	res, err := s.sessions.RequestRematch(ctx, roomId, p.Symbol)
	s.reply(p, res, err)
}

func (s *server) handleLeave(ctx context.Context, roomId string, p *player) {
	res, err := s.sessions.Leave(ctx, roomId, p.Symbol)
	if !s.reply(p, res, err) {
		return
	}
	s.stopBot(roomId)
	p.close("left")
}

// Handler for when a move finishes a round. Only the transaction that
// finished the round gets here, so each round is recorded once.
func (s *server) handleRoundEnd(ctx context.Context, room entities.Room) {
	if room.Status != entities.RoomFinished || !room.Ranked {
		return
	}
	winner := game.ParseMark(room.Winner)
	if winner == game.Empty {
		return
	}
	req := dtos.RankUpdateRequest{
		RoomId:   room.Id,
		Round:    room.Round,
		WinnerId: room.PlayerId(string(winner)),
		LoserId:  room.PlayerId(string(winner.Opponent())),
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), req); err != nil {
		logging.Error("failed to record round", zap.String("roomId", room.Id), zap.Error(err))
		return
	}
	logging.Info("round recorded",
		zap.String("roomId", room.Id),
		zap.String("winnerId", req.WinnerId),
		zap.String("loserId", req.LoserId),
	)
}
