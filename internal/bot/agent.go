package bot

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = time.Second
)

// Agent wraps a Strategist with a think delay so bot moves do not land
// instantly.
type Agent struct {
	Strategist Strategist
	Difficulty Difficulty
	MinDelay   time.Duration
	MaxDelay   time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewAgent(d Difficulty, minDelay, maxDelay time.Duration, rng *rand.Rand) (*Agent, error) {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	strategist, err := New(d, rng)
	if err != nil {
		return nil, err
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Agent{
		Strategist: strategist,
		Difficulty: d,
		MinDelay:   minDelay,
		MaxDelay:   maxDelay,
		rng:        rng,
	}, nil
}

func (a *Agent) delay() time.Duration {
	span := a.MaxDelay - a.MinDelay
	if span <= 0 {
		return a.MinDelay
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.MinDelay + time.Duration(a.rng.Int64N(int64(span)))
}

// Think waits out the delay and then selects a move. The move is computed
// under the agent lock because the strategist shares the agent's rng.
func (a *Agent) Think(ctx context.Context, p Position) (int, bool, error) {
	if d := a.delay(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, false, ctx.Err()
		case <-timer.C:
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.Strategist.SelectMove(p)
	return i, ok, nil
}
