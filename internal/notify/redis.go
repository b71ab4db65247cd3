// Package notify carries document change notifications between processes
// over Redis pub/sub. A message only names the key and the committed
// version; subscribers read the document themselves.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

const channelPrefix = "tictacthree:changes:"

type Notifier struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Dial connects to the Redis server at redisURL and checks it answers.
func Dial(ctx context.Context, redisURL string) (*Notifier, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required for change notifications")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb), nil
}

func (n *Notifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}

func Channel(key store.Key) string {
	return channelPrefix + key.Collection + ":" + key.Id
}

// Publish announces that key was committed at version. Version 0 means the
// document was deleted.
func (n *Notifier) Publish(ctx context.Context, key store.Key, version int64) error {
	err := n.rdb.Publish(ctx, Channel(key), strconv.FormatInt(version, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe calls fn with each version announced for key, in the order
// Redis delivers them, until ctx ends or the returned function is called.
func (n *Notifier) Subscribe(
	ctx context.Context,
	key store.Key,
	fn func(version int64),
) (func(), error) {
	pubsub := n.rdb.Subscribe(ctx, Channel(key))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				version, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					logging.Warn("malformed change notification",
						zap.String("channel", msg.Channel),
						zap.String("payload", msg.Payload))
					continue
				}
				fn(version)
			}
		}
	}()
	return cancel, nil
}
