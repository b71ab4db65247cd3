package entities

type QueueStatus string

const (
	QueueSearching QueueStatus = "searching"
	QueueMatched   QueueStatus = "matched"
)

// QueueEntry is one waiting player. Once matched it carries the room and
// seat assigned by whichever searcher completed the pairing.
type QueueEntry struct {
	PlayerId     string      `dynamodbav:"Id"`
	DisplayName  string      `dynamodbav:"DisplayName"`
	EnqueuedAt   int64       `dynamodbav:"EnqueuedAt"`
	Status       QueueStatus `dynamodbav:"Status"`
	RoomId       string      `dynamodbav:"RoomId"`
	Symbol       string      `dynamodbav:"Symbol"`
	OpponentId   string      `dynamodbav:"OpponentId"`
	OpponentName string      `dynamodbav:"OpponentName"`
	// ConnectionId is the API Gateway websocket connection to push the
	// pairing to, for players queued through the serverless route.
	ConnectionId string `dynamodbav:"ConnectionId"`
}
