package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tictacthree/tictacthree/internal/store"
)

func TestChannelNamesKey(t *testing.T) {
	assert.Equal(t, "tictacthree:changes:rooms:ABCD", Channel(store.RoomKey("ABCD")))
	assert.NotEqual(t, Channel(store.RoomKey("A")), Channel(store.QueueKey("A")))
}
