package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/aws/storage"
	"github.com/tictacthree/tictacthree/internal/matchmaking"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

var (
	pairer       *matchmaking.Pairer
	queueTimeout = matchmaking.DefaultQueueTimeout
)

func init() {
	ctx := context.Background()
	cfg, _ := config.LoadDefaultConfig(ctx)
	storageClient, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		logging.Fatal("Failed to init storage", zap.Error(err))
	}
	if v, ok := os.LookupEnv("QUEUE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			logging.Fatal("Invalid QUEUE_TIMEOUT", zap.Error(err))
		}
		queueTimeout = d
	}
	pairer = matchmaking.NewPairer(storageClient, matchmaking.Config{QueueTimeout: queueTimeout})
}

// Runs on a schedule and drops queue entries older than the queue timeout.
func handler(ctx context.Context, event events.CloudWatchEvent) error {
	n, err := pairer.CleanupStale(ctx, queueTimeout)
	if err != nil {
		return err
	}
	if n > 0 {
		logging.Info("Stale queue entries removed", zap.Int("count", n))
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
