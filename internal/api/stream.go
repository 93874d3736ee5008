// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/threadline-dev/threadline/internal/broadcaster"
	"github.com/threadline-dev/threadline/internal/models"
)

// upgrader configures the websocket handshake for the Subscribe contract.
// CheckOrigin accepts every origin, including requests with no Origin
// header (non-browser clients), since the stream carries no session
// cookie to steal via CSRF-style cross-origin abuse.
var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(*http.Request) bool { return true },
}

// Stream implements GET /v1/conversations/{tenant}/{conversation}/stream:
// upgrades to a websocket, registers a Subscriber with the Broadcaster,
// and pumps events until the connection closes. The initial "connected"
// envelope (with a snapshot, if one exists) is enqueued synchronously by
// Hub.Subscribe, after the upgrade and before Serve writes anything to
// the connection.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	key := models.ConversationKey{
		TenantID:       chi.URLParam(r, "tenant"),
		ConversationID: chi.URLParam(r, "conversation"),
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	snapshot, _ := h.aggregator.Snapshot(key)
	sub := h.broadcaster.Subscribe(key, snapshot)

	broadcaster.Serve(h.broadcaster, sub, conn, h.logger)
}
