package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
)

const wsWriteTimeout = 5 * time.Second

// The API serves a local UI, so cross-origin upgrades are accepted.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleWS streams player state snapshots and download progress over a
// websocket. The initial state is sent immediately on connect.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("httpapi: websocket upgrade failed")
		return
	}
	defer conn.Close()

	states, cancel := h.deps.Player.Subscribe()
	defer cancel()

	dlUpdates, dlCancel := h.deps.Downloads.Subscribe()
	defer dlCancel()

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice the close handshake.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev wsEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			zlog.Debug().Err(err).Msg("httpapi: websocket write failed")
			return false
		}
		return true
	}

	if !send(wsEvent{Type: "state", Data: h.deps.Player.State()}) {
		return
	}

	for {
		select {
		case st, ok := <-states:
			if !ok {
				return
			}
			if !send(wsEvent{Type: "state", Data: st}) {
				return
			}
		case <-dlUpdates:
			if !send(wsEvent{Type: "downloads", Data: h.deps.Downloads.Active()}) {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
