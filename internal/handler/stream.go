package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/tradesim/internal/market"
)

const streamWriteTimeout = 5 * time.Second

// StreamHandler serves the WebSocket market tick stream.
type StreamHandler struct {
	feed     *market.Feed
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler. Cross-origin upgrades are
// accepted; this server is a local test double, not an internet-facing one.
func NewStreamHandler(feed *market.Feed, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		feed:   feed,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /ws/market. Each connected client gets every published
// tick as a JSON message until it disconnects.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ticks := h.feed.Subscribe()
	defer h.feed.Unsubscribe(ticks)

	// Drain client frames so close frames and pings are processed; a read
	// error means the client is gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(tick); err != nil {
				return
			}
		}
	}
}
