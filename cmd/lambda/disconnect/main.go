package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/aws/auth"
	"github.com/tictacthree/tictacthree/internal/aws/storage"
	"github.com/tictacthree/tictacthree/internal/matchmaking"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

var pairer *matchmaking.Pairer

func init() {
	ctx := context.Background()
	cfg, _ := config.LoadDefaultConfig(ctx)
	storageClient, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		logging.Fatal("Failed to init storage", zap.Error(err))
	}
	pairer = matchmaking.NewPairer(storageClient, matchmaking.Config{})
}

// A dropped connection takes its player out of the queue, unless the entry
// belongs to a newer connection.
func handler(ctx context.Context, event events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	playerId, _, err := auth.WebsocketIdentity(event.RequestContext.Authorizer)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
	}
	entry, exists, err := pairer.Entry(ctx, playerId)
	if err != nil {
		logging.Error("Failed to get queue entry", zap.String("playerId", playerId), zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	if !exists || entry.ConnectionId != event.RequestContext.ConnectionID {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
	}
	if err := pairer.Dequeue(ctx, playerId); err != nil {
		logging.Error("Failed to dequeue", zap.String("playerId", playerId), zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	logging.Info("Player left queue on disconnect", zap.String("playerId", playerId))
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
}

func main() {
	lambda.Start(handler)
}
