package utils

import (
	"strings"

	"github.com/google/uuid"
)

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func GenerateUUID() string {
	return uuid.NewString()
}

// GenerateRoomCode returns an upper-case code of length n (max 16) drawn from
// an alphabet without look-alike characters.
func GenerateRoomCode(n int) string {
	if n <= 0 || n > 16 {
		n = 6
	}
	id := uuid.New()
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(roomCodeAlphabet[int(id[i])%len(roomCodeAlphabet)])
	}
	return sb.String()
}
