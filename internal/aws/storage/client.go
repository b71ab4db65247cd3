// Package storage is the DynamoDB backend of store.Store. Each collection
// is a table keyed by Id; every item carries a numeric Version attribute
// that transactions condition on.
package storage

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/tictacthree/tictacthree/internal/notify"
	"github.com/tictacthree/tictacthree/internal/store"
)

const (
	idAttribute      = "Id"
	versionAttribute = "Version"
)

var ErrUnknownCollection = errors.New("unknown collection")

// DynamoAPI is the part of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Notifier fans out committed versions to other processes.
type Notifier interface {
	Publish(ctx context.Context, key store.Key, version int64) error
	Subscribe(ctx context.Context, key store.Key, fn func(version int64)) (func(), error)
}

type Client struct {
	dynamodb DynamoAPI
	notifier Notifier
	cfg      config
}

type config struct {
	RoomsTableName       *string
	QueueTableName       *string
	SeasonRanksTableName *string
	PollInterval         time.Duration
}

// NewClient builds the store. notifier may be nil, in which case
// subscriptions poll the table instead.
func NewClient(dynamoClient DynamoAPI, notifier Notifier) *Client {
	return &Client{
		dynamodb: dynamoClient,
		notifier: notifier,
		cfg:      loadConfig(),
	}
}

func loadConfig() config {
	cfg := config{
		RoomsTableName:       aws.String("Rooms"),
		QueueTableName:       aws.String("MatchmakingQueue"),
		SeasonRanksTableName: aws.String("SeasonRanks"),
		PollInterval:         time.Second,
	}
	if v, ok := os.LookupEnv("ROOMS_TABLE_NAME"); ok {
		cfg.RoomsTableName = aws.String(v)
	}
	if v, ok := os.LookupEnv("MATCHMAKING_QUEUE_TABLE_NAME"); ok {
		cfg.QueueTableName = aws.String(v)
	}
	if v, ok := os.LookupEnv("SEASON_RANKS_TABLE_NAME"); ok {
		cfg.SeasonRanksTableName = aws.String(v)
	}
	if v, ok := os.LookupEnv("STORAGE_POLL_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	return cfg
}

func (client *Client) tableName(collection string) (*string, error) {
	switch collection {
	case store.RoomsCollection:
		return client.cfg.RoomsTableName, nil
	case store.QueueCollection:
		return client.cfg.QueueTableName, nil
	case store.SeasonRanksCollection:
		return client.cfg.SeasonRanksTableName, nil
	default:
		return nil, ErrUnknownCollection
	}
}

var _ store.Store = (*Client)(nil)

// NewFromConfig builds the store for a lambda. Change notifications go to
// REDIS_URL when it is set.
func NewFromConfig(ctx context.Context, cfg aws.Config) (*Client, error) {
	url, ok := os.LookupEnv("REDIS_URL")
	if !ok || url == "" {
		return NewClient(dynamodb.NewFromConfig(cfg), nil), nil
	}
	n, err := notify.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewClient(dynamodb.NewFromConfig(cfg), n), nil
}
