package bot

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tictacthree/tictacthree/internal/game"
)

type Difficulty uint8

const (
	Easy Difficulty = iota
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "unknown"
	}
}

func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	default:
		return Easy, fmt.Errorf("unknown difficulty: %q", s)
	}
}

// Position is everything a strategist sees before choosing a cell.
type Position struct {
	Board    game.Board
	Self     []int
	Opponent []int
	Symbol   game.Mark
}

func (p Position) queues() game.Queues {
	var q game.Queues
	if p.Symbol == game.O {
		q.O, q.X = p.Self, p.Opponent
	} else {
		q.X, q.O = p.Self, p.Opponent
	}
	return q
}

// Strategist picks a cell for Position.Symbol. It reports false when no
// cell is free.
type Strategist interface {
	SelectMove(p Position) (int, bool)
}

// New builds the strategist for a difficulty. A nil rng gets a time seeded
// source.
func New(d Difficulty, rng *rand.Rand) (Strategist, error) {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	switch d {
	case Easy:
		return &EasyBot{rng: rng}, nil
	case Medium:
		return &MediumBot{rng: rng}, nil
	case Hard:
		return &HardBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot difficulty: %d", d)
	}
}
