package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

const (
	feedBuffer   = 64
	writeTimeout = 5 * time.Second
)

// Hub fans ledger events out to websocket subscribers. A subscriber that
// cannot keep up is disconnected rather than slowing down commits.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	out  chan []byte
}

func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		clients: make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Publish(ctx context.Context, e domain.Event) {
	b, err := json.Marshal(e)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", e.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.clients {
		select {
		case s.out <- b:
		default:
			delete(h.clients, s)
			close(s.out)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s := &subscriber{conn: conn, out: make(chan []byte, feedBuffer)}

	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(s)

	// Inbound frames are ignored; reading keeps control frames flowing and
	// tells us when the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(s)
}

func (h *Hub) writeLoop(s *subscriber) {
	defer s.conn.Close()

	for b := range s.out {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.remove(s)
			return
		}
	}

	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		close(s.out)
	}
}
