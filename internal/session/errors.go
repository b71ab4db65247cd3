package session

import "errors"

// Reason codes reported to clients when an action is ignored.
const (
	StatusAccepted      string = ""
	StatusGameNotActive string = "GAME_NOT_ACTIVE"
	StatusWrongTurn     string = "WRONG_TURN"
	StatusCellOccupied  string = "CELL_OCCUPIED"
	StatusInvalidCell   string = "INVALID_CELL"
	StatusInvalidPlayer string = "INVALID_PLAYER"
	StatusConflict      string = "CONFLICT"
	StatusRoomFull      string = "ROOM_FULL"
	StatusRoomPrivate   string = "ROOM_PRIVATE"
	StatusRoomTaken     string = "ROOM_CODE_TAKEN"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidCode  = errors.New("invalid room code")
)

// rejection aborts a transaction with a reason instead of a failure.
type rejection struct {
	reason string
}

func (r rejection) Error() string {
	return "rejected: " + r.reason
}

func reject(reason string) error {
	return rejection{reason: reason}
}
