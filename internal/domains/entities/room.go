package entities

import "time"

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
	RoomLeft     RoomStatus = "left"
)

const WinnerDraw = "draw"

// Room is the persisted state of one online match. Board cells hold "",
// "X" or "O"; mark lists are oldest first.
type Room struct {
	Id             string     `dynamodbav:"Id"`
	Board          []string   `dynamodbav:"Board"`
	PlayerXMarks   []int      `dynamodbav:"PlayerXMarks"`
	PlayerOMarks   []int      `dynamodbav:"PlayerOMarks"`
	CurrentPlayer  string     `dynamodbav:"CurrentPlayer"`
	StartingPlayer string     `dynamodbav:"StartingPlayer"`
	TurnCount      int        `dynamodbav:"TurnCount"`
	Status         RoomStatus `dynamodbav:"Status"`
	Winner         string     `dynamodbav:"Winner"`
	WinningLine    []int      `dynamodbav:"WinningLine"`
	LastEvicted    int        `dynamodbav:"LastEvicted"`

	PlayerXId   string `dynamodbav:"PlayerXId"`
	PlayerOId   string `dynamodbav:"PlayerOId"`
	PlayerXName string `dynamodbav:"PlayerXName"`
	PlayerOName string `dynamodbav:"PlayerOName"`
	XReady      bool   `dynamodbav:"XReady"`
	OReady      bool   `dynamodbav:"OReady"`
	XScore      int    `dynamodbav:"XScore"`
	OScore      int    `dynamodbav:"OScore"`
	Round       int    `dynamodbav:"Round"`

	RematchRequested bool   `dynamodbav:"RematchRequested"`
	RematchBy        string `dynamodbav:"RematchBy"`
	LeftBy           string `dynamodbav:"LeftBy"`

	Ranked    bool      `dynamodbav:"Ranked"`
	Private   bool      `dynamodbav:"Private"`
	BotLevel  string    `dynamodbav:"BotLevel"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
	UpdatedAt time.Time `dynamodbav:"UpdatedAt"`
}

func (r Room) PlayerId(symbol string) string {
	if symbol == "O" {
		return r.PlayerOId
	}
	return r.PlayerXId
}

// SymbolOf returns the seat held by playerId, or "" for spectators.
func (r Room) SymbolOf(playerId string) string {
	switch {
	case playerId == "":
		return ""
	case r.PlayerXId == playerId:
		return "X"
	case r.PlayerOId == playerId:
		return "O"
	default:
		return ""
	}
}
