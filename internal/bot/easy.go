package bot

import "math/rand/v2"

// EasyBot plays a uniformly random free cell.
type EasyBot struct {
	rng *rand.Rand
}

func (b *EasyBot) SelectMove(p Position) (int, bool) {
	return randomCell(b.rng, p.Board.EmptyCells())
}
