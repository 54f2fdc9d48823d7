// SPDX-License-Identifier: MIT

package eventbus

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nordlock/sentrygate/internal/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsSink adapts one gorilla/websocket connection into a Sink. Writes are
// serialized through a buffered channel and a dedicated writer goroutine
// since gorilla/websocket connections are not safe for concurrent writers.
type wsSink struct {
	conn    *websocket.Conn
	outbox  chan []byte
	closeMu sync.Mutex
	closed  bool
}

func newWSSink(conn *websocket.Conn) *wsSink {
	s := &wsSink{conn: conn, outbox: make(chan []byte, 64)}
	go s.writeLoop()
	return s
}

func (s *wsSink) Send(payload []byte) error {
	select {
	case s.outbox <- payload:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (s *wsSink) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.outbox)
	return s.conn.Close()
}

func (s *wsSink) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-s.outbox:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades r to a WebSocket connection and subscribes it to bus
// until the client disconnects.
func ServeWS(bus *Bus, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithComponent("eventbus").Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sink := newWSSink(conn)
	bus.Subscribe(sink)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	bus.Unsubscribe(sink)
}
