package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustAuth(t *testing.T) {
	authorizer := map[string]interface{}{
		"jwt": map[string]interface{}{
			"claims": map[string]interface{}{"sub": "alice"},
		},
	}
	assert.Equal(t, "alice", MustAuth(authorizer))
	assert.Panics(t, func() { MustAuth(map[string]interface{}{}) })
}

func TestParseToken(t *testing.T) {
	secret := []byte("secret")
	token, err := IssueToken("alice", "Alice", time.Minute, secret)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)

	_, err = ParseToken(token, []byte("other"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := IssueToken("alice", "Alice", -time.Minute, secret)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(none, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestWebsocketIdentity(t *testing.T) {
	id, name, err := WebsocketIdentity(map[string]interface{}{
		"principalId": "alice",
		"name":        "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
	assert.Equal(t, "Alice", name)

	_, _, err = WebsocketIdentity(map[string]interface{}{"name": "Alice"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, _, err = WebsocketIdentity(nil)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
