package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tictacthree/tictacthree/internal/aws/auth"
)

type identity struct {
	Id   string
	Name string
}

// auth validates the bearer token. Browsers cannot set headers on a
// websocket handshake, so the token query parameter is accepted as well.
func (s *server) auth(r *http.Request) (identity, error) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return identity{}, ErrNoAuthorization
	}
	claims, err := auth.ParseToken(token, []byte(s.config.JwtSecret))
	if err != nil {
		return identity{}, fmt.Errorf("invalid token: %w", err)
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return identity{Id: claims.Subject, Name: name}, nil
}
