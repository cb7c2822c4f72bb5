/*
 * Copyright 2026 EZVIZ Bridge Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

const (
	eventWriteTimeout = 10 * time.Second

	// eventBufferSize bounds the per-client send queue. A client that
	// cannot drain this many events is dropped.
	eventBufferSize = 16
)

// eventHub fans registry state changes out to connected WebSocket
// clients. Each client gets a buffered send queue and a dedicated writer
// goroutine; the gorilla connection allows only one concurrent writer.
type eventHub struct {
	logger   logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

func newEventHub(log logger.Logger) *eventHub {
	return &eventHub{
		logger: log.WithComponent("events"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// broadcast queues a state change for every connected client. Clients
// with a full queue are disconnected rather than blocking the caller.
func (h *eventHub) broadcast(change registry.StateChange) {
	payload, err := json.Marshal(change)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal state change")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, send := range h.clients {
		select {
		case send <- payload:
		default:
			h.logger.Warn().Str("remote", conn.RemoteAddr().String()).
				Msg("Dropping slow event stream client")
			delete(h.clients, conn)
			close(send)
		}
	}
}

// handle upgrades the request and streams events until the client goes
// away or the hub shuts down.
func (h *eventHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	send := make(chan []byte, eventBufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()

		return
	}

	h.clients[conn] = send
	h.mu.Unlock()

	h.logger.Info().Str("remote", conn.RemoteAddr().String()).
		Msg("Event stream client connected")

	go h.writeLoop(conn, send)
	h.readLoop(conn, send)
}

// writeLoop delivers queued events to one client.
func (h *eventHub) writeLoop(conn *websocket.Conn, send chan []byte) {
	for payload := range send {
		if err := conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout)); err != nil {
			break
		}

		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}

	conn.Close()
}

// readLoop discards inbound frames; its purpose is detecting client
// disconnects promptly.
func (h *eventHub) readLoop(conn *websocket.Conn, send chan []byte) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()

	h.logger.Info().Str("remote", conn.RemoteAddr().String()).
		Msg("Event stream client disconnected")
}

// close disconnects all clients and rejects new ones.
func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for conn, send := range h.clients {
		delete(h.clients, conn)
		close(send)
		conn.Close()
	}
}
