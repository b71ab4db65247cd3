package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tictacthree/tictacthree/internal/game"
)

type player struct {
	Id     string
	Name   string
	Symbol game.Mark
	Conn   *websocket.Conn

	mu *sync.Mutex
}

func newPlayer(conn *websocket.Conn, id identity, symbol game.Mark) *player {
	return &player{
		Id:     id.Id,
		Name:   id.Name,
		Symbol: symbol,
		Conn:   conn,
		mu:     new(sync.Mutex),
	}
}

func (p *player) writeJson(msg interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Conn == nil {
		return nil
	}
	return p.Conn.WriteJSON(msg)
}

func (p *player) writeControl(messageType int, data []byte, deadline time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Conn == nil {
		return nil
	}
	return p.Conn.WriteControl(messageType, data, deadline)
}

// close sends a close frame with reason and drops the connection.
func (p *player) close(reason string) {
	_ = p.writeControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(time.Second),
	)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Conn != nil {
		p.Conn.Close()
	}
}
