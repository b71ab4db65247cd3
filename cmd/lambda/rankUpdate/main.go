package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/aws/storage"
	"github.com/tictacthree/tictacthree/internal/domains/dtos"
	"github.com/tictacthree/tictacthree/internal/rank"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

var tracker *rank.Tracker

func init() {
	ctx := context.Background()
	cfg, _ := config.LoadDefaultConfig(ctx)
	storageClient, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		logging.Fatal("Failed to init storage", zap.Error(err))
	}
	tracker = rank.NewTracker(storageClient)
}

// Invoked asynchronously by the game server when a ranked round finishes.
// Failed invocations are retried, and a retry of an already recorded round
// changes nothing.
func handler(ctx context.Context, event json.RawMessage) error {
	var req dtos.RankUpdateRequest
	if err := json.Unmarshal(event, &req); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}
	winner, loser, err := tracker.RecordRound(ctx, rank.RoundId(req.RoomId, req.Round), req.WinnerId, req.LoserId)
	if err != nil {
		return fmt.Errorf("failed to record round: %w", err)
	}
	logging.Info("Round recorded",
		zap.String("roomId", req.RoomId),
		zap.Int("round", req.Round),
		zap.String("winnerRank", winner.Rank.String()),
		zap.String("loserRank", loser.Rank.String()),
	)
	return nil
}

func main() {
	lambda.Start(handler)
}
