package session

import (
	"time"

	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/game"
)

func boardOf(r entities.Room) game.Board {
	var b game.Board
	for i := 0; i < len(b) && i < len(r.Board); i++ {
		b[i] = game.ParseMark(r.Board[i])
	}
	return b
}

func queuesOf(r entities.Room) game.Queues {
	return game.Queues{
		X: append([]int(nil), r.PlayerXMarks...),
		O: append([]int(nil), r.PlayerOMarks...),
	}
}

func setBoard(r *entities.Room, b game.Board) {
	r.Board = make([]string, len(b))
	for i, c := range b {
		r.Board[i] = string(c)
	}
}

func setQueues(r *entities.Room, q game.Queues) {
	r.PlayerXMarks = append([]int{}, q.X...)
	r.PlayerOMarks = append([]int{}, q.O...)
}

// clearRound empties the board for a fresh round opened by starter.
func clearRound(r *entities.Room, starter game.Mark) {
	setBoard(r, game.Board{})
	setQueues(r, game.Queues{})
	r.CurrentPlayer = string(starter)
	r.StartingPlayer = string(starter)
	r.TurnCount = 0
	r.Winner = ""
	r.WinningLine = nil
	r.LastEvicted = game.NoEviction
	r.RematchRequested = false
	r.RematchBy = ""
}

// Board returns the room's board as engine cells.
func Board(r entities.Room) game.Board {
	return boardOf(r)
}

// Queues returns the room's mark queues.
func Queues(r entities.Room) game.Queues {
	return queuesOf(r)
}

// NextStarter is who opens the round after r: the player who did not open
// the previous one, whatever its outcome.
func NextStarter(r entities.Room) game.Mark {
	starter := game.ParseMark(r.StartingPlayer)
	if starter == game.Empty {
		return game.X
	}
	return starter.Opponent()
}

// NewRoom is a room in waiting with an empty board and X to open.
func NewRoom(id string, now time.Time) entities.Room {
	room := entities.Room{
		Id:        id,
		Status:    entities.RoomWaiting,
		Round:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	clearRound(&room, game.X)
	return room
}
