package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/aws/storage"
	"github.com/tictacthree/tictacthree/internal/matchmaking"
	"github.com/tictacthree/tictacthree/internal/notify"
	"github.com/tictacthree/tictacthree/internal/rank"
	"github.com/tictacthree/tictacthree/internal/session"
	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/internal/store/memory"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

type server struct {
	address  string
	upgrader websocket.Upgrader

	config   Config
	store    store.Store
	sessions *session.Session
	pairer   *matchmaking.Pairer
	tracker  *rank.Tracker
	recorder RankRecorder

	// bots maps a room id to the cancel func of its driver.
	bots sync.Map
}

type payload struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewServer() *server {
	cfg := NewConfig()
	ctx := context.Background()

	var st store.Store
	var recorder RankRecorder
	switch cfg.StorageBackend {
	case "", "memory":
		st = memory.New()
	case "dynamodb":
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx)
		if err != nil {
			panic(err)
		}
		var notifier storage.Notifier
		if cfg.RedisUrl != "" {
			n, err := notify.Dial(ctx, cfg.RedisUrl)
			if err != nil {
				panic(err)
			}
			notifier = n
		}
		st = storage.NewClient(dynamodb.NewFromConfig(awsCfg), notifier)
		if cfg.RankUpdateFunctionName != "" {
			recorder = lambdaRecorder{
				client:       lambda.NewFromConfig(awsCfg),
				functionName: cfg.RankUpdateFunctionName,
			}
		}
	default:
		panic(ErrUnknownBackend)
	}
	return newServer(cfg, st, recorder)
}

// newServer wires the server over st. A nil recorder records ranks in
// process.
func newServer(cfg Config, st store.Store, recorder RankRecorder) *server {
	tracker := rank.NewTracker(st)
	if recorder == nil {
		recorder = trackerRecorder{tracker: tracker}
	}
	return &server{
		address: "0.0.0.0:" + cfg.Port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		config: cfg,
		store:  st,
		sessions: session.New(st, session.Config{
			DrawTurnLimit: cfg.DrawTurnLimit,
			LeaveGrace:    cfg.LeaveGrace,
		}),
		pairer: matchmaking.NewPairer(st, matchmaking.Config{
			SearchInterval: cfg.SearchInterval,
			QueueTimeout:   cfg.QueueTimeout,
		}),
		tracker:  tracker,
		recorder: recorder,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", s.handleCreateRoom)
		r.Post("/bot", s.handleCreateBotRoom)
		r.Post("/{roomId}/join", s.handleJoinRoom)
	})
	r.Get("/ranks/me", s.handleGetRank)
	r.Get("/game/{roomId}", s.handleGame)
	r.Get("/matchmaking", s.handleMatchmaking)
	return r
}

// Start serves the HTTP and websocket routes and runs the queue janitor.
func (s *server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.cleanQueue(ctx)

	logging.Info("websocket server started", zap.String("port", s.config.Port))
	return http.ListenAndServe(s.address, s.routes())
}

// cleanQueue drops abandoned matchmaking entries once per queue timeout.
func (s *server) cleanQueue(ctx context.Context) {
	interval := s.config.QueueTimeout
	if interval <= 0 {
		interval = matchmaking.DefaultQueueTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.pairer.CleanupStale(ctx, 0); err != nil {
				logging.Error("failed to clean matchmaking queue", zap.Error(err))
			}
		}
	}
}

func writeJson(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJson(w, status, errorResponse{Type: "error", Error: reason})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, session.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidCode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
