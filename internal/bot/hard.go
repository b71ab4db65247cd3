package bot

import (
	"math"

	"github.com/tictacthree/tictacthree/internal/game"
)

const (
	centerBonus       = 3
	cornerBonus       = 2
	brokenPairPenalty = 4
	losingScore       = -100

	ownWeight   = 0.6
	replyWeight = 0.4
)

// HardBot looks one move ahead for itself and one reply for the opponent.
// It is not a full minimax and can be beaten.
type HardBot struct{}

func (b *HardBot) SelectMove(p Position) (int, bool) {
	cells := p.Board.EmptyCells()
	if len(cells) == 0 {
		return 0, false
	}
	q := p.queues()
	self := p.Symbol

	if i, ok := winningMove(p.Board, q, self); ok {
		return i, true
	}

	best, bestScore := cells[0], math.Inf(-1)
	for _, i := range cells {
		score := b.score(p.Board, q, self, i)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, true
}

func (b *HardBot) score(board game.Board, q game.Queues, self game.Mark, index int) float64 {
	after, ok := game.ApplyMove(board, q, self, index)
	if !ok {
		return math.Inf(-1)
	}

	own := evaluate(after.Board, self)
	if after.Board[index] == self {
		if index == game.Center {
			own += centerBonus
		}
		for _, c := range game.Corners {
			if index == c {
				own += cornerBonus
			}
		}
	}
	if after.Evicted != game.NoEviction {
		if lost := livePairs(board, self) - livePairs(after.Board, self); lost > 0 {
			own -= float64(brokenPairPenalty * lost)
		}
	}

	return ownWeight*own + replyWeight*worstReply(after, self)
}

// worstReply is our evaluation after the opponent's most damaging answer.
func worstReply(after game.MoveResult, self game.Mark) float64 {
	opp := self.Opponent()
	replies := after.Board.EmptyCells()
	if len(replies) == 0 {
		return evaluate(after.Board, self)
	}
	worst := math.Inf(1)
	for _, j := range replies {
		res, ok := game.ApplyMove(after.Board, after.Queues, opp, j)
		if !ok {
			continue
		}
		s := evaluate(res.Board, self)
		if game.DetectWinner(res.Board) == opp {
			s = losingScore
		}
		if s < worst {
			worst = s
		}
	}
	return worst
}
