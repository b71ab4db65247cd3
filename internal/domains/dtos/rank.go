package dtos

import "github.com/tictacthree/tictacthree/internal/domains/entities"

type SeasonRankResponse struct {
	UserId         string  `json:"UserId"`
	Rank           string  `json:"Rank"`
	LastSeasonRank string  `json:"LastSeasonRank,omitempty"`
	SeasonId       string  `json:"SeasonId"`
	Wins           int     `json:"Wins"`
	Losses         int     `json:"Losses"`
	GamesPlayed    int     `json:"GamesPlayed"`
	WinRate        float64 `json:"WinRate"`
	SeasonScore    int     `json:"SeasonScore"`
	LossStreak     int     `json:"LossStreak"`
}

func SeasonRankResponseFromEntity(r entities.SeasonRank) SeasonRankResponse {
	return SeasonRankResponse{
		UserId:         r.UserId,
		Rank:           r.Rank,
		LastSeasonRank: r.LastSeasonRank,
		SeasonId:       r.SeasonId,
		Wins:           r.Wins,
		Losses:         r.Losses,
		GamesPlayed:    r.GamesPlayed,
		WinRate:        r.WinRate,
		SeasonScore:    r.SeasonScore,
		LossStreak:     r.LossStreak,
	}
}

// RankUpdateRequest is the payload handed to the rank update function when a
// ranked round finishes with a winner.
type RankUpdateRequest struct {
	RoomId   string `json:"RoomId"`
	Round    int    `json:"Round"`
	WinnerId string `json:"WinnerId"`
	LoserId  string `json:"LoserId"`
}
