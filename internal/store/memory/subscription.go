package memory

import (
	"context"
	"sync"

	"github.com/tictacthree/tictacthree/internal/store"
)

// subscription delivers snapshots on its own goroutine from an unbounded
// queue, so commits never block on a slow subscriber and order is kept.
type subscription struct {
	fn func(store.Snapshot)

	mu      sync.Mutex
	pending []store.Snapshot
	signal  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (sub *subscription) push(snap store.Snapshot) {
	sub.mu.Lock()
	sub.pending = append(sub.pending, snap)
	sub.mu.Unlock()
	select {
	case sub.signal <- struct{}{}:
	default:
	}
}

func (sub *subscription) run() {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.signal:
		}
		for {
			sub.mu.Lock()
			if len(sub.pending) == 0 {
				sub.mu.Unlock()
				break
			}
			snap := sub.pending[0]
			sub.pending = sub.pending[1:]
			sub.mu.Unlock()

			select {
			case <-sub.done:
				return
			default:
			}
			sub.fn(snap)
		}
	}
}

func (s *Store) publishLocked(key store.Key) {
	snap := s.snapshotLocked(key)
	for sub := range s.subs[key] {
		sub.push(snap)
	}
}

func (s *Store) Subscribe(ctx context.Context, key store.Key, fn func(store.Snapshot)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscription{
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[*subscription]struct{})
	}
	s.subs[key][sub] = struct{}{}
	sub.push(s.snapshotLocked(key))
	s.mu.Unlock()

	go sub.run()

	cancel := func() {
		sub.once.Do(func() {
			s.mu.Lock()
			delete(s.subs[key], sub)
			if len(s.subs[key]) == 0 {
				delete(s.subs, key)
			}
			s.mu.Unlock()
			close(sub.done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()
	return cancel, nil
}
