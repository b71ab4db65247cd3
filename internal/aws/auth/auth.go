package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// MustAuth returns the subject of an API Gateway JWT authorizer context.
func MustAuth(authorizer map[string]interface{}) string {
	jwt, ok := authorizer["jwt"].(map[string]interface{})
	if !ok {
		panic("no jwt")
	}
	v, exists := jwt["claims"]
	if !exists {
		panic("no authorizer claims")
	}
	claims, ok := v.(map[string]interface{})
	if !ok {
		panic("claims must be of type map")
	}
	userId, ok := claims["sub"].(string)
	if !ok {
		panic("invalid sub")
	}
	return userId
}

// WebsocketIdentity reads the player set by the connect authorizer from a
// websocket request context.
func WebsocketIdentity(authorizer interface{}) (playerId, name string, err error) {
	context, ok := authorizer.(map[string]interface{})
	if !ok {
		return "", "", ErrInvalidToken
	}
	playerId, _ = context["principalId"].(string)
	if playerId == "" {
		return "", "", ErrInvalidToken
	}
	name, _ = context["name"].(string)
	return playerId, name, nil
}

// Claims carries the player's display name next to the registered claims.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token signed with secret.
func ParseToken(tokenString string, secret []byte) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// IssueToken signs an HS256 token for playerId. Used by local tooling and
// tests; production tokens come from the identity provider.
func IssueToken(playerId, name string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerId,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
