package hub

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = (pongTimeout * 9) / 10
	sendBuffer   = 64
)

// subscriber is one connected dashboard client, spec.md §4.6.
type subscriber struct {
	conn *websocket.Conn
	send chan serverMessage
	hub  *Hub
}

func newSubscriber(hub *Hub, conn *websocket.Conn) *subscriber {
	return &subscriber{conn: conn, send: make(chan serverMessage, sendBuffer), hub: hub}
}

// writePump owns conn writes exclusively, per gorilla/websocket's
// single-writer requirement.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump owns conn reads exclusively and dispatches commands to the Hub.
func (s *subscriber) readPump() {
	defer s.hub.unregister(s)

	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			slog.Warn("hub: malformed command", "error", err)
			s.trySend(serverMessage{Type: "error", Error: "malformed command"})
			continue
		}
		s.hub.handleCommand(s, cmd)
	}
}

// trySend enqueues msg without blocking; a full buffer means the
// subscriber is unresponsive and is dropped, spec.md §7's TransportError.
func (s *subscriber) trySend(msg serverMessage) bool {
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}
