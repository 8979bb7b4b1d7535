package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Broadcaster hands out per-group subscriptions. Cancelling a subscription
// closes its channel.
type Broadcaster interface {
	Subscribe(group string) (<-chan []byte, func())
}

// StreamRoute pushes status events for one workspace over a websocket. Only
// events published after the connection is established are delivered.
type StreamRoute struct {
	workspaces Workspaces
	hub        Broadcaster
	upgrader   websocket.Upgrader
}

func NewStreamRoute(workspaces Workspaces, hub Broadcaster) *StreamRoute {
	return &StreamRoute{
		workspaces: workspaces,
		hub:        hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *StreamRoute) Pattern() string {
	return "/workspaces/{id}/stream"
}

func (h *StreamRoute) Method() string {
	return http.MethodGet
}

func (h *StreamRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	_, err := h.workspaces.GetWorkspace(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		log.Error().Err(err).Str("workspace_id", id).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe(id)
	defer cancel()

	// The read loop only services control frames and notices the client leaving.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case payload, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.TextMessage, payload)
			if err != nil {
				log.Debug().Err(err).Str("workspace_id", id).Msg("Status stream closed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
