// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcaster

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // subscribers never send payload bodies, only pings
)

// Serve pumps events from sub's queue to conn and pings conn on
// pingPeriod, until the connection closes or the hub drops the
// subscriber. It also drains inbound client frames (pings only) so
// gorilla/websocket's control-frame handling keeps working. Call from
// the HTTP surface's websocket upgrade handler; it blocks until the
// connection ends.
func Serve(hub *Hub, sub *Subscriber, conn *websocket.Conn, logger zerolog.Logger) {
	done := make(chan struct{})
	go readLoop(conn, done, logger)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer hub.Unsubscribe(sub)
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)

	for {
		select {
		case event, ok := <-sub.send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("subscriber write failed, closing")
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readLoop discards inbound frames (this protocol is server-to-client
// only) but must keep reading so gorilla/websocket processes pong
// control frames and reports connection closure.
func readLoop(conn *websocket.Conn, done chan<- struct{}, logger zerolog.Logger) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug().Err(err).Msg("unexpected websocket close")
			}
			return
		}
	}
}
