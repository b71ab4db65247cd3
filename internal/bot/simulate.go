package bot

import "github.com/tictacthree/tictacthree/internal/game"

// winningMove returns a cell where who wins immediately, eviction included.
func winningMove(b game.Board, q game.Queues, who game.Mark) (int, bool) {
	for _, i := range b.EmptyCells() {
		res, ok := game.ApplyMove(b, q, who, i)
		if ok && game.DetectWinner(res.Board) == who {
			return i, true
		}
	}
	return 0, false
}

// holds reports whether after playing index, who still owns it.
func holds(b game.Board, q game.Queues, who game.Mark, index int) (game.MoveResult, bool) {
	res, ok := game.ApplyMove(b, q, who, index)
	if !ok {
		return res, false
	}
	return res, res.Board[index] == who
}

func randomCell(rng interface{ IntN(int) int }, cells []int) (int, bool) {
	if len(cells) == 0 {
		return 0, false
	}
	return cells[rng.IntN(len(cells))], true
}

// evaluate scores lines for who: open lines score the square of own marks,
// lines held only by the opponent cost the square of theirs.
func evaluate(b game.Board, who game.Mark) float64 {
	opp := who.Opponent()
	score := 0
	for _, ln := range game.WinLines {
		own, theirs := 0, 0
		for _, i := range ln {
			switch b[i] {
			case who:
				own++
			case opp:
				theirs++
			}
		}
		if theirs == 0 {
			score += own * own
		}
		if own == 0 && theirs > 0 {
			score -= theirs * theirs
		}
	}
	return float64(score)
}

// livePairs counts open lines where who holds two marks.
func livePairs(b game.Board, who game.Mark) int {
	n := 0
	for _, ln := range game.WinLines {
		own, theirs := 0, 0
		for _, i := range ln {
			switch b[i] {
			case who:
				own++
			case who.Opponent():
				theirs++
			}
		}
		if own == 2 && theirs == 0 {
			n++
		}
	}
	return n
}
