package mockapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/electrophobia/epterm/internal/realtime"
)

// hub is a minimal Socket.IO server: websocket transport, default namespace,
// server-to-client events only.
type hub struct {
	log          *slog.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pingTimeout  time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func newHub(log *slog.Logger, pingInterval, pingTimeout time.Duration) *hub {
	return &hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		pingTimeout:  pingTimeout,
		clients:      make(map[*client]struct{}),
	}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("transport") != "websocket" {
		writeError(w, http.StatusBadRequest, "only the websocket transport is supported")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("socket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.remove(c)
		_ = conn.Close()
	}()

	open, err := realtime.EncodeOpen(realtime.Handshake{
		SID:          uuid.NewString(),
		Upgrades:     []string{},
		PingInterval: int(h.pingInterval / time.Millisecond),
		PingTimeout:  int(h.pingTimeout / time.Millisecond),
	})
	if err != nil || c.send(open) != nil {
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(h.pingInterval + h.pingTimeout))
	_, frame, err := conn.ReadMessage()
	if err != nil || len(frame) < 2 || frame[0] != realtime.PacketMessage || frame[1] != realtime.SocketConnect {
		return
	}
	h.add(c)
	if err := c.send([]byte(`40{"sid":"` + uuid.NewString() + `"}`)); err != nil {
		return
	}
	h.log.Debug("socket client connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.pinger(ctx, c)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(h.pingInterval + h.pingTimeout))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if len(frame) >= 2 && frame[0] == realtime.PacketMessage && frame[1] == realtime.SocketDisconnect {
			return
		}
		if len(frame) == 1 && frame[0] == realtime.PacketClose {
			return
		}
	}
}

func (h *hub) pinger(ctx context.Context, c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.send([]byte{realtime.PacketPing}); err != nil {
				return
			}
		}
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Clients returns the number of connected sockets.
func (h *hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// emit broadcasts an event to every connected client.
func (h *hub) emit(event string, payload any) {
	frame, err := realtime.EncodeEvent(event, payload)
	if err != nil {
		h.log.Error("encode event", "event", event, "err", err)
		return
	}
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(frame); err != nil {
			h.log.Debug("emit failed", "event", event, "err", err)
		}
	}
	h.log.Info("event emitted", "event", event, "clients", len(clients))
}
