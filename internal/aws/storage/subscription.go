package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

// Subscribe re-reads key whenever a change is announced, or on a poll
// interval without a notifier. Bursts collapse into the latest snapshot and
// a version already delivered is never delivered again.
func (client *Client) Subscribe(
	ctx context.Context,
	key store.Key,
	fn func(store.Snapshot),
) (func(), error) {
	if _, err := client.tableName(key.Collection); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)

	wake := make(chan struct{}, 1)
	signal := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	stopNotify := func() {}
	if client.notifier != nil {
		stop, err := client.notifier.Subscribe(ctx, key, func(int64) { signal() })
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to subscribe: %w", err)
		}
		stopNotify = stop
	}
	signal()

	go func() {
		var tick <-chan time.Time
		if client.notifier == nil {
			ticker := time.NewTicker(client.cfg.PollInterval)
			defer ticker.Stop()
			tick = ticker.C
		}
		last := int64(-1)
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
			case <-tick:
			}
			snap, err := client.Get(ctx, key)
			if err != nil {
				if ctx.Err() == nil {
					logging.Warn("failed to refresh subscription",
						zap.String("key", key.String()),
						zap.Error(err))
				}
				continue
			}
			if snap.Version == last {
				continue
			}
			last = snap.Version
			fn(snap)
		}
	}()

	return func() {
		stopNotify()
		cancel()
	}, nil
}
