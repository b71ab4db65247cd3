package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/bot"
	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/game"
	"github.com/tictacthree/tictacthree/internal/session"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

const botSymbol = game.O

// startBot runs an agent for the O seat of a bot room. It plays whenever
// it is O's turn, accepts every rematch, and stops when the room is left
// or goes idle.
func (s *server) startBot(room entities.Room) error {
	level, err := bot.ParseDifficulty(room.BotLevel)
	if err != nil {
		return err
	}
	minDelay, maxDelay := s.config.BotMinDelay, s.config.BotMaxDelay
	if minDelay == 0 && maxDelay == 0 {
		minDelay, maxDelay = bot.DefaultMinDelay, bot.DefaultMaxDelay
	}
	agent, err := bot.NewAgent(level, minDelay, maxDelay, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	latest := make(chan entities.Room, 1)
	stop, err := s.sessions.Watch(ctx, room.Id, botSymbol, session.WatchHandlers{
		OnChange: func(r entities.Room) {
			select {
			case <-latest:
			default:
			}
			latest <- r
		},
	})
	if err != nil {
		cancel()
		return err
	}
	s.bots.Store(room.Id, cancel)

	go func() {
		defer s.bots.Delete(room.Id)
		defer stop()
		defer cancel()
		s.driveBot(ctx, agent, latest)
	}()
	logging.Info("bot started", zap.String("roomId", room.Id), zap.String("level", level.String()))
	return nil
}

func (s *server) stopBot(roomId string) {
	if v, ok := s.bots.Load(roomId); ok {
		v.(context.CancelFunc)()
	}
}

func (s *server) driveBot(ctx context.Context, agent *bot.Agent, latest <-chan entities.Room) {
	idle := s.config.IdleTimeout
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		var room entities.Room
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			logging.Info("bot room idle")
			return
		case room = <-latest:
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(idle)

		switch room.Status {
		case entities.RoomLeft:
			return
		case entities.RoomFinished:
			if room.RematchRequested && room.RematchBy != string(botSymbol) {
				if _, err := s.sessions.ResolveRematch(ctx, room.Id); err != nil {
					logging.Error("bot failed to accept rematch", zap.Error(err))
				}
			}
		case entities.RoomPlaying:
			if game.ParseMark(room.CurrentPlayer) != botSymbol {
				continue
			}
			queues := session.Queues(room)
			index, ok, err := agent.Think(ctx, bot.Position{
				Board:    session.Board(room),
				Self:     queues.Of(botSymbol),
				Opponent: queues.Of(botSymbol.Opponent()),
				Symbol:   botSymbol,
			})
			if err != nil || !ok {
				continue
			}
			res, err := s.sessions.SubmitMove(ctx, room.Id, botSymbol, index)
			if err != nil {
				logging.Error("bot move failed", zap.String("roomId", room.Id), zap.Error(err))
				continue
			}
			if !res.Accepted() {
				logging.Debug("bot move ignored", zap.String("reason", res.Reason))
			}
		}
	}
}
