// Package ws implements the WebSocket live feed. Dashboards can connect here
// instead of (or in addition to) registering a reviewer webhook; every event
// the dispatcher emits is broadcast to all connected clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// conn wraps a single WebSocket connection.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Feed manages all active WebSocket connections and broadcasts events.
type Feed struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{conns: make(map[*conn]struct{})}
}

// HandleWS upgrades the connection and keeps it registered until it closes.
func (f *Feed) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{ws: ws, cancel: cancel}

	f.mu.Lock()
	f.conns[c] = struct{}{}
	f.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr)

	// Read loop to detect disconnects and consume pings.
	go func() {
		defer func() {
			f.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends the event to every connected client.
func (f *Feed) Broadcast(ctx context.Context, event validation.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for c := range f.conns {
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go f.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (f *Feed) ConnectionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.conns)
}

func (f *Feed) remove(c *conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.conns[c]; ok {
		c.cancel()
		delete(f.conns, c)
		slog.Info("websocket disconnected")
	}
}
