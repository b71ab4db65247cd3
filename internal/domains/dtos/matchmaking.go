package dtos

type PairingResponse struct {
	RoomId       string `json:"RoomId"`
	Symbol       string `json:"Symbol"`
	OpponentId   string `json:"OpponentId"`
	OpponentName string `json:"OpponentName"`
}

type QueueResponse struct {
	Status    string `json:"Status"`
	Searching int    `json:"Searching"`
}

// MatchedMessage is pushed to a searching player once paired.
type MatchedMessage struct {
	Type    string          `json:"type"`
	Pairing PairingResponse `json:"pairing"`
}

func NewMatchedMessage(roomId, symbol, opponentId, opponentName string) MatchedMessage {
	return MatchedMessage{
		Type: "matched",
		Pairing: PairingResponse{
			RoomId:       roomId,
			Symbol:       symbol,
			OpponentId:   opponentId,
			OpponentName: opponentName,
		},
	}
}
