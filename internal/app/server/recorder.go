package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/tictacthree/tictacthree/internal/domains/dtos"
	"github.com/tictacthree/tictacthree/internal/rank"
)

// RankRecorder takes the result of a finished ranked round.
type RankRecorder interface {
	Record(ctx context.Context, req dtos.RankUpdateRequest) error
}

type trackerRecorder struct {
	tracker *rank.Tracker
}

func (r trackerRecorder) Record(ctx context.Context, req dtos.RankUpdateRequest) error {
	_, _, err := r.tracker.RecordRound(ctx, rank.RoundId(req.RoomId, req.Round), req.WinnerId, req.LoserId)
	return err
}

type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// lambdaRecorder hands the result to the rank update function without
// waiting for it.
type lambdaRecorder struct {
	client       lambdaInvoker
	functionName string
}

func (r lambdaRecorder) Record(ctx context.Context, req dtos.RankUpdateRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal rank update: %w", err)
	}
	_, err = r.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(r.functionName),
		Payload:        payload,
		InvocationType: types.InvocationTypeEvent,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke rank update: %w", err)
	}
	return nil
}
