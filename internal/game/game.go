package game

// Game is a self-contained match for local and bot play. Online rooms keep
// the same fields in the persisted room document instead.
type Game struct {
	Board     Board
	Queues    Queues
	Current   Mark
	Starter   Mark
	TurnCount int
	Winner    Mark
	Draw      bool
	DrawLimit int
}

func NewGame(starter Mark, drawLimit int) *Game {
	if !starter.Valid() {
		starter = X
	}
	if drawLimit <= 0 {
		drawLimit = DefaultDrawTurnLimit
	}
	return &Game{
		Current:   starter,
		Starter:   starter,
		DrawLimit: drawLimit,
	}
}

func (g *Game) Over() bool {
	return g.Winner != Empty || g.Draw
}

// Play applies the current player's move. It reports false when the game is
// over or the cell cannot be taken.
func (g *Game) Play(index int) (MoveResult, bool) {
	if g.Over() {
		return MoveResult{Board: g.Board, Queues: g.Queues, Evicted: NoEviction}, false
	}
	res, ok := ApplyMove(g.Board, g.Queues, g.Current, index)
	if !ok {
		return res, false
	}
	g.Board = res.Board
	g.Queues = res.Queues
	g.TurnCount++

	if w := DetectWinner(g.Board); w != Empty {
		g.Winner = w
		return res, true
	}
	if DetectDraw(g.Board, g.TurnCount, g.DrawLimit) {
		g.Draw = true
		return res, true
	}
	g.Current = g.Current.Opponent()
	return res, true
}

// Reset clears the board for another round; the other player opens it.
func (g *Game) Reset() {
	starter := g.Starter.Opponent()
	*g = Game{
		Current:   starter,
		Starter:   starter,
		DrawLimit: g.DrawLimit,
	}
}
