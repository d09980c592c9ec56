package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
	// Clients send no application data, only control frames.
	wsReadLimit = 512
)

// handleWebSocket streams one StepEvent per executed instruction to the
// client. The session to watch is chosen with the ?session=<id> query
// parameter; omitting it streams every session. The socket is one-way:
// there is no subscription protocol to speak, connecting is subscribing.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.isAllowedOrigin(r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	watcher := s.broadcaster.Watch(r.URL.Query().Get("session"))

	// The read loop exists only to notice the peer going away.
	go func() {
		conn.SetReadLimit(wsReadLimit)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.broadcaster.Unwatch(watcher)
				return
			}
		}
	}()

	go s.streamEvents(conn, watcher)
}

// streamEvents forwards watcher events to the socket, pinging during
// idle stretches (a paused or slow-clocked session can sit quiet for a
// long time) so intermediaries keep the connection open.
func (s *Server) streamEvents(conn *websocket.Conn, watcher *Watcher) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		if err := conn.Close(); err != nil {
			log.Printf("websocket close error: %v", err)
		}
	}()

	for {
		select {
		case ev, ok := <-watcher.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(wsWriteTimeout))
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
