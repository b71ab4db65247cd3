package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/aws/auth"
	"github.com/tictacthree/tictacthree/internal/aws/notification"
	"github.com/tictacthree/tictacthree/internal/aws/storage"
	"github.com/tictacthree/tictacthree/internal/domains/dtos"
	"github.com/tictacthree/tictacthree/internal/game"
	"github.com/tictacthree/tictacthree/internal/matchmaking"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

var (
	pairer             *matchmaking.Pairer
	notificationClient *notification.Client
)

type request struct {
	Action string `json:"action"`
	// Type is "search" (default) or "cancel".
	Type string `json:"type"`
}

func init() {
	ctx := context.Background()
	cfg, _ := config.LoadDefaultConfig(ctx)
	storageClient, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		logging.Fatal("Failed to init storage", zap.Error(err))
	}
	pairer = matchmaking.NewPairer(storageClient, matchmaking.Config{})
	notificationClient = notification.NewFromConfig(cfg)
}

// Handle matchmaking messages on the websocket API. A player that cannot be
// paired yet stays queued until a later searcher picks them.
func handler(ctx context.Context, event events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionId := event.RequestContext.ConnectionID
	playerId, name, err := auth.WebsocketIdentity(event.RequestContext.Authorizer)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	var req request
	if event.Body != "" {
		if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
			return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
		}
	}
	if req.Type == "cancel" {
		if err := pairer.Dequeue(ctx, playerId); err != nil {
			logging.Error("Failed to dequeue", zap.String("playerId", playerId), zap.Error(err))
			return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
		}
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: "Cancelled"}, nil
	}

	if err := pairer.EnqueueConnection(ctx, playerId, name, connectionId); err != nil {
		logging.Error("Failed to enqueue", zap.String("playerId", playerId), zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	pairing, ok, err := pairer.TryPair(ctx, playerId, name)
	if err != nil {
		logging.Error("Failed to pair", zap.String("playerId", playerId), zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	if !ok {
		searching, err := pairer.CountSearching(ctx)
		if err != nil {
			logging.Warn("Failed to count searching players", zap.Error(err))
		}
		post(ctx, connectionId, dtos.QueueResponse{Status: "searching", Searching: searching})
		return events.APIGatewayProxyResponse{StatusCode: http.StatusAccepted, Body: "Queued"}, nil
	}

	if err := notifyOpponent(ctx, pairing, playerId, name); err != nil {
		logging.Error("Failed to notify opponent",
			zap.String("roomId", pairing.RoomId),
			zap.String("opponentId", pairing.OpponentId),
			zap.Error(err))
	}
	post(ctx, connectionId, dtos.NewMatchedMessage(
		pairing.RoomId,
		string(pairing.Symbol),
		pairing.OpponentId,
		pairing.OpponentName,
	))
	if err := pairer.Dequeue(ctx, playerId); err != nil {
		logging.Warn("Failed to dequeue", zap.String("playerId", playerId), zap.Error(err))
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusCreated, Body: pairing.RoomId}, nil
}

// notifyOpponent pushes the pairing to the opponent's connection and consumes
// their queue entry. Opponents searching through the game server have no
// connection and pick the pairing up from their own listener.
func notifyOpponent(ctx context.Context, pairing matchmaking.Pairing, playerId, name string) error {
	entry, exists, err := pairer.Entry(ctx, pairing.OpponentId)
	if err != nil {
		return err
	}
	if !exists || entry.ConnectionId == "" {
		return nil
	}
	err = notificationClient.PostJson(ctx, entry.ConnectionId, dtos.NewMatchedMessage(
		pairing.RoomId,
		string(game.O),
		playerId,
		name,
	))
	if err != nil && !errors.Is(err, notification.ErrGone) {
		return err
	}
	return pairer.Dequeue(ctx, pairing.OpponentId)
}

func post(ctx context.Context, connectionId string, v interface{}) {
	if err := notificationClient.PostJson(ctx, connectionId, v); err != nil {
		logging.Warn("Failed to post to connection",
			zap.String("connectionId", connectionId),
			zap.Error(err))
	}
}

func main() {
	lambda.Start(handler)
}
