package bot

import (
	"math/rand/v2"

	"github.com/tictacthree/tictacthree/internal/game"
)

// MediumBot wins when it can, blocks when it must, then prefers the center
// and corners.
type MediumBot struct {
	rng *rand.Rand
}

func (b *MediumBot) SelectMove(p Position) (int, bool) {
	cells := p.Board.EmptyCells()
	if len(cells) == 0 {
		return 0, false
	}
	q := p.queues()
	self, opp := p.Symbol, p.Symbol.Opponent()

	if i, ok := winningMove(p.Board, q, self); ok {
		return i, true
	}

	// Threats are simulated with the opponent's own eviction, so a line
	// that would lose its oldest mark is not a threat.
	if i, ok := winningMove(p.Board, q, opp); ok {
		if _, stable := holds(p.Board, q, self, i); stable {
			return i, true
		}
	}

	if p.Board[game.Center] == game.Empty {
		if _, stable := holds(p.Board, q, self, game.Center); stable {
			return game.Center, true
		}
	}

	var corners []int
	for _, c := range game.Corners {
		if p.Board[c] != game.Empty {
			continue
		}
		if _, stable := holds(p.Board, q, self, c); stable {
			corners = append(corners, c)
		}
	}
	if i, ok := randomCell(b.rng, corners); ok {
		return i, true
	}
	return randomCell(b.rng, cells)
}
