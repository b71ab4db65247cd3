// Package matchmaking pairs waiting players from a shared queue. A pairing
// is one transaction over both queue entries and the new room, so a player
// is never placed in two rooms.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/game"
	"github.com/tictacthree/tictacthree/internal/session"
	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/logging"
	"github.com/tictacthree/tictacthree/pkg/utils"
)

const (
	DefaultSearchInterval = 3 * time.Second
	DefaultQueueTimeout   = 60 * time.Second
	roomCodeLength        = 6
)

var (
	ErrInvalidPlayer = errors.New("invalid player id")
	errNoMatch       = errors.New("no match")
)

type Config struct {
	SearchInterval time.Duration
	QueueTimeout   time.Duration
}

// Pairing is what one side learns about a completed match.
type Pairing struct {
	RoomId       string
	Symbol       game.Mark
	OpponentId   string
	OpponentName string
}

type Pairer struct {
	store store.Store
	cfg   Config
	now   func() time.Time
}

func NewPairer(s store.Store, cfg Config) *Pairer {
	if cfg.SearchInterval <= 0 {
		cfg.SearchInterval = DefaultSearchInterval
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = DefaultQueueTimeout
	}
	return &Pairer{store: s, cfg: cfg, now: time.Now}
}

func (p *Pairer) SetClock(now func() time.Time) {
	p.now = now
}

func decodeEntry(snap store.Snapshot) (entities.QueueEntry, error) {
	var entry entities.QueueEntry
	err := snap.Decode(&entry)
	return entry, err
}

func searching(e entities.QueueEntry) bool {
	return e.Status == entities.QueueSearching && e.RoomId == ""
}

// Enqueue marks the player as searching. An existing searching entry keeps
// its place in line and a matched entry is left alone.
func (p *Pairer) Enqueue(ctx context.Context, playerId, displayName string) error {
	return p.EnqueueConnection(ctx, playerId, displayName, "")
}

// EnqueueConnection is Enqueue for a player reachable on an API Gateway
// websocket connection.
func (p *Pairer) EnqueueConnection(ctx context.Context, playerId, displayName, connectionId string) error {
	if playerId == "" {
		return ErrInvalidPlayer
	}
	key := store.QueueKey(playerId)
	err := p.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(ctx, key)
		if err != nil {
			return err
		}
		entry := entities.QueueEntry{
			PlayerId:     playerId,
			DisplayName:  displayName,
			EnqueuedAt:   p.now().UnixMilli(),
			Status:       entities.QueueSearching,
			ConnectionId: connectionId,
		}
		if snap.Exists() {
			old, err := decodeEntry(snap)
			if err != nil {
				return err
			}
			if !searching(old) {
				return nil
			}
			entry.EnqueuedAt = old.EnqueuedAt
		}
		return tx.Set(key, entry)
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue: %w", err)
	}
	return nil
}

func (p *Pairer) Dequeue(ctx context.Context, playerId string) error {
	if err := p.store.Delete(ctx, store.QueueKey(playerId)); err != nil {
		return fmt.Errorf("failed to dequeue: %w", err)
	}
	return nil
}

// Entry returns the player's queue entry, if any.
func (p *Pairer) Entry(ctx context.Context, playerId string) (entities.QueueEntry, bool, error) {
	snap, err := p.store.Get(ctx, store.QueueKey(playerId))
	if err != nil {
		return entities.QueueEntry{}, false, fmt.Errorf("failed to get queue entry: %w", err)
	}
	if !snap.Exists() {
		return entities.QueueEntry{}, false, nil
	}
	entry, err := decodeEntry(snap)
	if err != nil {
		return entities.QueueEntry{}, false, err
	}
	return entry, true, nil
}

// IsQueued reports whether the player has a queue entry in any state.
func (p *Pairer) IsQueued(ctx context.Context, playerId string) (bool, error) {
	snap, err := p.store.Get(ctx, store.QueueKey(playerId))
	if err != nil {
		return false, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return snap.Exists(), nil
}

func (p *Pairer) entries(ctx context.Context) ([]entities.QueueEntry, error) {
	snaps, err := p.store.List(ctx, store.QueueCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	entries := make([]entities.QueueEntry, 0, len(snaps))
	for _, snap := range snaps {
		entry, err := decodeEntry(snap)
		if err != nil {
			logging.Warn("skipping malformed queue entry",
				zap.String("key", snap.Key.String()),
				zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CountSearching is the number of players still waiting for an opponent.
func (p *Pairer) CountSearching(ctx context.Context) (int, error) {
	entries, err := p.entries(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if searching(e) {
			n++
		}
	}
	return n, nil
}

// oldest returns the searching entry that has waited longest, ties broken
// by player id.
func oldest(entries []entities.QueueEntry, exclude string) (entities.QueueEntry, bool) {
	candidates := make([]entities.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.PlayerId != exclude && searching(e) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return entities.QueueEntry{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].EnqueuedAt != candidates[j].EnqueuedAt {
			return candidates[i].EnqueuedAt < candidates[j].EnqueuedAt
		}
		return candidates[i].PlayerId < candidates[j].PlayerId
	})
	return candidates[0], true
}

// TryPair matches the caller with the oldest searching player. The caller
// plays X. A candidate taken by a concurrent pairer, or a lost commit,
// reports no match.
func (p *Pairer) TryPair(
	ctx context.Context,
	playerId string,
	displayName string,
) (Pairing, bool, error) {
	if playerId == "" {
		return Pairing{}, false, ErrInvalidPlayer
	}
	entries, err := p.entries(ctx)
	if err != nil {
		return Pairing{}, false, err
	}
	candidate, ok := oldest(entries, playerId)
	if !ok {
		return Pairing{}, false, nil
	}

	roomId := utils.GenerateRoomCode(roomCodeLength)
	err = p.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		selfKey := store.QueueKey(playerId)
		selfSnap, err := tx.Get(ctx, selfKey)
		if err != nil {
			return err
		}
		var self entities.QueueEntry
		if selfSnap.Exists() {
			if self, err = decodeEntry(selfSnap); err != nil {
				return err
			}
			if !searching(self) {
				return errNoMatch
			}
		}

		otherKey := store.QueueKey(candidate.PlayerId)
		otherSnap, err := tx.Get(ctx, otherKey)
		if err != nil {
			return err
		}
		if !otherSnap.Exists() {
			return errNoMatch
		}
		other, err := decodeEntry(otherSnap)
		if err != nil {
			return err
		}
		if !searching(other) {
			return errNoMatch
		}

		roomKey := store.RoomKey(roomId)
		roomSnap, err := tx.Get(ctx, roomKey)
		if err != nil {
			return err
		}
		if roomSnap.Exists() {
			return errNoMatch
		}

		room := session.NewRoom(roomId, p.now())
		room.PlayerXId = playerId
		room.PlayerXName = displayName
		room.PlayerOId = other.PlayerId
		room.PlayerOName = other.DisplayName
		room.XReady = true
		room.OReady = true
		room.Ranked = true
		room.Status = entities.RoomPlaying
		if err := tx.Set(roomKey, room); err != nil {
			return err
		}

		other.Status = entities.QueueMatched
		other.RoomId = roomId
		other.Symbol = string(game.O)
		other.OpponentId = playerId
		other.OpponentName = displayName
		if err := tx.Set(otherKey, other); err != nil {
			return err
		}

		if selfSnap.Exists() {
			self.Status = entities.QueueMatched
			self.RoomId = roomId
			self.Symbol = string(game.X)
			self.OpponentId = other.PlayerId
			self.OpponentName = other.DisplayName
			return tx.Set(selfKey, self)
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, errNoMatch), errors.Is(err, store.ErrConflict):
		logging.Debug("pairing attempt lost",
			zap.String("playerId", playerId),
			zap.String("candidateId", candidate.PlayerId))
		return Pairing{}, false, nil
	default:
		return Pairing{}, false, fmt.Errorf("failed to pair: %w", err)
	}

	logging.Info("players paired",
		zap.String("roomId", roomId),
		zap.String("playerX", playerId),
		zap.String("playerO", candidate.PlayerId))
	return Pairing{
		RoomId:       roomId,
		Symbol:       game.X,
		OpponentId:   candidate.PlayerId,
		OpponentName: candidate.DisplayName,
	}, true, nil
}

// ListenForPairing calls fn once when another pairer matches the player,
// then removes the consumed queue entry.
func (p *Pairer) ListenForPairing(
	ctx context.Context,
	playerId string,
	fn func(Pairing),
) (func(), error) {
	var (
		fired       bool
		unsubscribe func()
	)
	ready := make(chan struct{})
	stop, err := p.store.Subscribe(ctx, store.QueueKey(playerId), func(snap store.Snapshot) {
		if fired || !snap.Exists() {
			return
		}
		entry, err := decodeEntry(snap)
		if err != nil || entry.Status != entities.QueueMatched || entry.RoomId == "" {
			return
		}
		fired = true
		fn(Pairing{
			RoomId:       entry.RoomId,
			Symbol:       game.ParseMark(entry.Symbol),
			OpponentId:   entry.OpponentId,
			OpponentName: entry.OpponentName,
		})
		if err := p.Dequeue(context.WithoutCancel(ctx), playerId); err != nil {
			logging.Error("failed to consume queue entry",
				zap.String("playerId", playerId),
				zap.Error(err))
		}
		<-ready
		unsubscribe()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen for pairing: %w", err)
	}
	unsubscribe = stop
	close(ready)
	return stop, nil
}

// CleanupStale removes searching entries older than the queue timeout and
// returns how many were removed.
func (p *Pairer) CleanupStale(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = p.cfg.QueueTimeout
	}
	entries, err := p.entries(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := p.now().Add(-maxAge).UnixMilli()
	removed := 0
	for _, e := range entries {
		if !searching(e) || e.EnqueuedAt >= cutoff {
			continue
		}
		key := store.QueueKey(e.PlayerId)
		deleted := false
		err := p.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			snap, err := tx.Get(ctx, key)
			if err != nil || !snap.Exists() {
				return err
			}
			cur, err := decodeEntry(snap)
			if err != nil {
				return err
			}
			if !searching(cur) || cur.EnqueuedAt >= cutoff {
				return nil
			}
			deleted = true
			return tx.Delete(key)
		})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to remove stale entry: %w", err)
		}
		if deleted {
			removed++
		}
	}
	if removed > 0 {
		logging.Info("stale queue entries removed", zap.Int("count", removed))
	}
	return removed, nil
}
