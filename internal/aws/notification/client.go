package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// ErrGone is returned when the websocket connection no longer exists.
var ErrGone = errors.New("connection gone")

type ConnectionAPI interface {
	PostToConnection(
		ctx context.Context,
		params *apigatewaymanagementapi.PostToConnectionInput,
		optFns ...func(*apigatewaymanagementapi.Options),
	) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// Client pushes messages to API Gateway websocket connections.
type Client struct {
	apigw ConnectionAPI
}

func NewClient(apigw ConnectionAPI) *Client {
	return &Client{apigw: apigw}
}

// NewFromConfig builds a client for the websocket API named by AWS_API_ID.
func NewFromConfig(cfg aws.Config) *Client {
	endpoint := fmt.Sprintf(
		"https://%s.execute-api.%s.amazonaws.com/%s",
		os.Getenv("AWS_API_ID"),
		cfg.Region,
		stage(),
	)
	return NewClient(apigatewaymanagementapi.NewFromConfig(cfg,
		func(o *apigatewaymanagementapi.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		},
	))
}

func stage() string {
	if v := os.Getenv("AWS_API_STAGE"); v != "" {
		return v
	}
	return "Prod"
}

func (client *Client) PostJson(ctx context.Context, connectionId string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_, err = client.apigw.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionId),
		Data:         data,
	})
	if err != nil {
		var gone *types.GoneException
		if errors.As(err, &gone) {
			return ErrGone
		}
		return fmt.Errorf("failed to post to connection: %w", err)
	}
	return nil
}
