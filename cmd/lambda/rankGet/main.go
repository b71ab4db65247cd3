package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/aws/auth"
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

func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userId := auth.MustAuth(event.RequestContext.Authorizer)
	seasonRank, err := tracker.EnsureSeason(ctx, userId)
	if err != nil {
		logging.Error("Failed to get season rank", zap.String("userId", userId), zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	rankJson, err := json.Marshal(dtos.SeasonRankResponseFromEntity(seasonRank))
	if err != nil {
		logging.Error("Failed to get season rank", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: string(rankJson)}, nil
}

func main() {
	lambda.Start(handler)
}
