package dtos

import (
	"time"

	"github.com/tictacthree/tictacthree/internal/domains/entities"
)

type RoomRequest struct {
	Code        string `json:"Code"`
	DisplayName string `json:"DisplayName"`
	Difficulty  string `json:"Difficulty"`
}

type RoomResponse struct {
	Id            string         `json:"Id"`
	Board         []string       `json:"Board"`
	PlayerXMarks  []int          `json:"PlayerXMarks"`
	PlayerOMarks  []int          `json:"PlayerOMarks"`
	NextEviction  int            `json:"NextEviction"`
	CurrentPlayer string         `json:"CurrentPlayer"`
	TurnCount     int            `json:"TurnCount"`
	Status        string         `json:"Status"`
	Winner        string         `json:"Winner,omitempty"`
	WinningLine   []int          `json:"WinningLine,omitempty"`
	LastEvicted   int            `json:"LastEvicted"`
	PlayerX       PlayerResponse `json:"PlayerX"`
	PlayerO       PlayerResponse `json:"PlayerO"`
	Round         int            `json:"Round"`
	Rematch       string         `json:"Rematch,omitempty"`
	LeftBy        string         `json:"LeftBy,omitempty"`
	Ranked        bool           `json:"Ranked"`
	BotLevel      string         `json:"BotLevel,omitempty"`
	UpdatedAt     time.Time      `json:"UpdatedAt"`
}

type PlayerResponse struct {
	Id    string `json:"Id"`
	Name  string `json:"Name"`
	Ready bool   `json:"Ready"`
	Score int    `json:"Score"`
}

// RoomResponseFromEntity renders a room. nextEviction is the cell the
// player to move would lose with their next placement, or -1.
func RoomResponseFromEntity(room entities.Room, nextEviction int) RoomResponse {
	resp := RoomResponse{
		Id:            room.Id,
		Board:         room.Board,
		PlayerXMarks:  room.PlayerXMarks,
		PlayerOMarks:  room.PlayerOMarks,
		NextEviction:  nextEviction,
		CurrentPlayer: room.CurrentPlayer,
		TurnCount:     room.TurnCount,
		Status:        string(room.Status),
		Winner:        room.Winner,
		WinningLine:   room.WinningLine,
		LastEvicted:   room.LastEvicted,
		PlayerX: PlayerResponse{
			Id:    room.PlayerXId,
			Name:  room.PlayerXName,
			Ready: room.XReady,
			Score: room.XScore,
		},
		PlayerO: PlayerResponse{
			Id:    room.PlayerOId,
			Name:  room.PlayerOName,
			Ready: room.OReady,
			Score: room.OScore,
		},
		Round:     room.Round,
		LeftBy:    room.LeftBy,
		Ranked:    room.Ranked,
		BotLevel:  room.BotLevel,
		UpdatedAt: room.UpdatedAt,
	}
	if room.RematchRequested {
		resp.Rematch = room.RematchBy
	}
	return resp
}
