package game

const (
	// MaxMarks is the number of live marks a player may keep on the board.
	MaxMarks = 3

	// NoEviction is reported when a move did not remove an older mark.
	NoEviction = -1

	DefaultDrawTurnLimit = 50
)

type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

func (m Mark) Valid() bool {
	return m == X || m == O
}

func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func (m Mark) String() string {
	if m == Empty {
		return "-"
	}
	return string(m)
}

// ParseMark accepts "X" or "O". Anything else is Empty.
func ParseMark(s string) Mark {
	switch Mark(s) {
	case X:
		return X
	case O:
		return O
	default:
		return Empty
	}
}

// Board is a 3x3 grid stored row-major.
type Board [9]Mark

// WinLines lists every row, column and diagonal.
var WinLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

var (
	Center  = 4
	Corners = [4]int{0, 2, 6, 8}
)

func (b Board) EmptyCells() []int {
	cells := make([]int, 0, len(b))
	for i, c := range b {
		if c == Empty {
			cells = append(cells, i)
		}
	}
	return cells
}

func (b Board) Count(m Mark) int {
	n := 0
	for _, c := range b {
		if c == m {
			n++
		}
	}
	return n
}

func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Queues holds each player's marks, oldest first.
type Queues struct {
	X []int
	O []int
}

func (q Queues) Of(m Mark) []int {
	if m == O {
		return q.O
	}
	return q.X
}

func (q Queues) Clone() Queues {
	return Queues{
		X: append([]int(nil), q.X...),
		O: append([]int(nil), q.O...),
	}
}

func (q *Queues) set(m Mark, marks []int) {
	if m == O {
		q.O = marks
	} else {
		q.X = marks
	}
}

// NextEviction returns the index that the owner of queue would lose by
// placing another mark, or NoEviction.
func NextEviction(queue []int) int {
	if len(queue) < MaxMarks {
		return NoEviction
	}
	return queue[0]
}

type MoveResult struct {
	Board   Board
	Queues  Queues
	Evicted int
}

// ApplyMove places mover's mark at index and evicts the mover's oldest mark
// once they hold more than MaxMarks. Inputs are never modified. It reports
// false, leaving nothing changed, if the cell is out of range or occupied or
// the mover is not a player.
func ApplyMove(b Board, q Queues, mover Mark, index int) (MoveResult, bool) {
	if !mover.Valid() || index < 0 || index >= len(b) || b[index] != Empty {
		return MoveResult{Board: b, Queues: q, Evicted: NoEviction}, false
	}

	next := q.Clone()
	marks := append(next.Of(mover), index)
	evicted := NoEviction
	if len(marks) > MaxMarks {
		evicted = marks[0]
		marks = marks[1:]
		b[evicted] = Empty
	}
	b[index] = mover
	next.set(mover, marks)

	return MoveResult{Board: b, Queues: next, Evicted: evicted}, true
}

// DetectWinner returns the player owning a full line, or Empty.
func DetectWinner(b Board) Mark {
	_, m := WinningLine(b)
	return m
}

// WinningLine scans lines in fixed order and returns the first full one.
func WinningLine(b Board) ([3]int, Mark) {
	for _, ln := range WinLines {
		m := b[ln[0]]
		if m != Empty && b[ln[1]] == m && b[ln[2]] == m {
			return ln, m
		}
	}
	return [3]int{}, Empty
}

// DetectDraw reports a draw once turnCount reaches limit with no winner. The
// board itself can never fill up: at most 2*MaxMarks cells are occupied.
func DetectDraw(b Board, turnCount, limit int) bool {
	if limit <= 0 {
		limit = DefaultDrawTurnLimit
	}
	return DetectWinner(b) == Empty && turnCount >= limit
}
