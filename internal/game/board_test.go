package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func board(cells string) Board {
	var b Board
	for i, c := range cells {
		switch c {
		case 'X':
			b[i] = X
		case 'O':
			b[i] = O
		}
	}
	return b
}

func TestApplyMoveWithoutEviction(t *testing.T) {
	res, ok := ApplyMove(Board{}, Queues{}, X, 4)
	require.True(t, ok)
	assert.Equal(t, X, res.Board[4])
	assert.Equal(t, []int{4}, res.Queues.X)
	assert.Empty(t, res.Queues.O)
	assert.Equal(t, NoEviction, res.Evicted)
}

func TestApplyMoveRejectsIllegalInput(t *testing.T) {
	b := board("X________")
	q := Queues{X: []int{0}}

	for _, tc := range []struct {
		name  string
		mover Mark
		index int
	}{
		{"occupied", O, 0},
		{"negative", O, -1},
		{"out of range", O, 9},
		{"no mover", Empty, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, ok := ApplyMove(b, q, tc.mover, tc.index)
			assert.False(t, ok)
			assert.Equal(t, b, res.Board)
			assert.Equal(t, NoEviction, res.Evicted)
		})
	}
}

func TestApplyMoveDoesNotMutateInputs(t *testing.T) {
	b := board("X_X_X____")
	q := Queues{X: []int{0, 2, 4}}

	_, ok := ApplyMove(b, q, X, 6)
	require.True(t, ok)
	assert.Equal(t, board("X_X_X____"), b)
	assert.Equal(t, []int{0, 2, 4}, q.X)
}

func TestEvictionScenario(t *testing.T) {
	b := board("XOXOXO___")
	q := Queues{X: []int{0, 2, 4}, O: []int{1, 3, 5}}

	res, ok := ApplyMove(b, q, X, 6)
	require.True(t, ok)
	assert.Equal(t, 0, res.Evicted)
	assert.Equal(t, board("_OXOXOX__"), res.Board)
	assert.Equal(t, []int{2, 4, 6}, res.Queues.X)
	// 2-4-6 is the anti-diagonal.
	assert.Equal(t, X, DetectWinner(res.Board))

	res, ok = ApplyMove(res.Board, res.Queues, O, 7)
	require.True(t, ok)
	assert.Equal(t, 1, res.Evicted)
	assert.Equal(t, board("__XOXOXO_"), res.Board)
	assert.Equal(t, []int{3, 5, 7}, res.Queues.O)
}

func TestEvictionInterleavedUntilWin(t *testing.T) {
	res, ok := ApplyMove(board("_OXO_OX__"), Queues{X: []int{2, 6}, O: []int{1, 3, 5}}, X, 0)
	require.True(t, ok)
	assert.Equal(t, NoEviction, res.Evicted)
	assert.Equal(t, []int{2, 6, 0}, res.Queues.X)
	assert.Equal(t, Empty, DetectWinner(res.Board))

	res, ok = ApplyMove(res.Board, res.Queues, O, 4)
	require.True(t, ok)
	assert.Equal(t, 1, res.Evicted)
	assert.Equal(t, []int{3, 5, 4}, res.Queues.O)
	line, winner := WinningLine(res.Board)
	assert.Equal(t, O, winner)
	assert.Equal(t, [3]int{3, 4, 5}, line)
}

func TestDetectWinnerAllLines(t *testing.T) {
	for _, ln := range WinLines {
		for _, m := range []Mark{X, O} {
			var b Board
			for _, i := range ln {
				b[i] = m
			}
			got, winner := WinningLine(b)
			assert.Equal(t, m, winner)
			assert.Equal(t, ln, got)
		}
	}
	assert.Equal(t, Empty, DetectWinner(Board{}))
	assert.Equal(t, Empty, DetectWinner(board("XOX_OX_XO")))
}

func TestDetectDraw(t *testing.T) {
	assert.False(t, DetectDraw(Board{}, 49, 50))
	assert.True(t, DetectDraw(Board{}, 50, 50))
	assert.False(t, DetectDraw(board("XXX______"), 60, 50))
	assert.True(t, DetectDraw(Board{}, DefaultDrawTurnLimit, 0))
}

func TestNextEviction(t *testing.T) {
	assert.Equal(t, NoEviction, NextEviction(nil))
	assert.Equal(t, NoEviction, NextEviction([]int{1, 2}))
	assert.Equal(t, 1, NextEviction([]int{1, 2, 3}))
}

func TestMarkWindowInvariantUnderRandomPlay(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 200; round++ {
		g := NewGame(X, 40)
		for !g.Over() {
			cells := g.Board.EmptyCells()
			require.NotEmpty(t, cells)
			_, ok := g.Play(cells[rng.IntN(len(cells))])
			require.True(t, ok)

			for _, m := range []Mark{X, O} {
				queue := g.Queues.Of(m)
				assert.LessOrEqual(t, len(queue), MaxMarks)
				assert.Equal(t, len(queue), g.Board.Count(m))
				for _, i := range queue {
					assert.Equal(t, m, g.Board[i])
				}
			}
			assert.False(t, g.Board.Full(), "board can never fill")
		}
		if g.Draw {
			assert.Equal(t, 40, g.TurnCount)
		}
	}
}

func TestGamePlayAndReset(t *testing.T) {
	g := NewGame(X, 0)
	for _, i := range []int{0, 3, 1, 4} {
		_, ok := g.Play(i)
		require.True(t, ok)
	}
	_, ok := g.Play(0)
	assert.False(t, ok, "occupied")

	_, ok = g.Play(2)
	require.True(t, ok)
	assert.Equal(t, X, g.Winner)
	assert.True(t, g.Over())

	_, ok = g.Play(8)
	assert.False(t, ok, "game over")

	g.Reset()
	assert.Equal(t, O, g.Current)
	assert.Equal(t, O, g.Starter)
	assert.Equal(t, Board{}, g.Board)
	assert.Equal(t, 0, g.TurnCount)
	assert.Equal(t, DefaultDrawTurnLimit, g.DrawLimit)
}
