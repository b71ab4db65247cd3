package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/aws/auth"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

var jwtSecret []byte

func init() {
	jwtSecret = []byte(os.Getenv("JWT_SECRET"))
}

// Authorize the websocket $connect request. The token comes from the
// "token" query parameter, or the Authorization header as a fallback.
func handler(
	ctx context.Context,
	event events.APIGatewayCustomAuthorizerRequestTypeRequest,
) (events.APIGatewayCustomAuthorizerResponse, error) {
	token := event.QueryStringParameters["token"]
	if token == "" {
		token = strings.TrimPrefix(event.Headers["Authorization"], "Bearer ")
	}
	claims, err := auth.ParseToken(token, jwtSecret)
	if err != nil {
		logging.Info("Connection rejected", zap.Error(err))
		return events.APIGatewayCustomAuthorizerResponse{}, errors.New("Unauthorized")
	}

	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: claims.Subject,
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: "2012-10-17",
			Statement: []events.IAMPolicyStatement{
				{
					Action:   []string{"execute-api:Invoke"},
					Effect:   "Allow",
					Resource: []string{event.MethodArn},
				},
			},
		},
		Context: map[string]interface{}{
			"name": claims.Name,
		},
	}, nil
}

func main() {
	lambda.Start(handler)
}
