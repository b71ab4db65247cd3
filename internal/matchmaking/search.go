package matchmaking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/pkg/logging"
)

// Search keeps the player in the queue until a pairing is found, either by
// this loop or by another searcher. Ending ctx dequeues the player.
func (p *Pairer) Search(ctx context.Context, playerId, displayName string) (Pairing, error) {
	if err := p.Enqueue(ctx, playerId, displayName); err != nil {
		return Pairing{}, err
	}

	found := make(chan Pairing, 1)
	stop, err := p.ListenForPairing(ctx, playerId, func(pr Pairing) {
		select {
		case found <- pr:
		default:
		}
	})
	if err != nil {
		p.abandon(playerId)
		return Pairing{}, err
	}
	defer stop()

	ticker := time.NewTicker(p.cfg.SearchInterval)
	defer ticker.Stop()

	for {
		pr, ok, err := p.TryPair(ctx, playerId, displayName)
		if err != nil && ctx.Err() == nil {
			logging.Warn("pairing attempt failed",
				zap.String("playerId", playerId),
				zap.Error(err))
		}
		if ok {
			p.abandon(playerId)
			return pr, nil
		}

		select {
		case pr := <-found:
			return pr, nil
		case <-ctx.Done():
			select {
			case pr := <-found:
				return pr, nil
			default:
			}
			p.abandon(playerId)
			return Pairing{}, fmt.Errorf("search cancelled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *Pairer) abandon(playerId string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Dequeue(ctx, playerId); err != nil {
		logging.Error("failed to leave queue",
			zap.String("playerId", playerId),
			zap.Error(err))
	}
}
