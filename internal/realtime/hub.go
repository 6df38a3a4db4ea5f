package realtime

import (
	"context"
	"sync"
	"time"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"

	"github.com/google/uuid"
)

const defaultWriteTimeout = 10 * time.Second

// Hub is the process-wide registry of open realtime connections, keyed by
// user. It is created at startup and closed at shutdown.
type Hub struct {
	mu           sync.RWMutex
	clients      map[uuid.UUID]map[*Client]struct{}
	writeTimeout time.Duration
	logger       logger.Logger
}

func NewHub(writeTimeout time.Duration, log logger.Logger) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Hub{
		clients:      make(map[uuid.UUID]map[*Client]struct{}),
		writeTimeout: writeTimeout,
		logger:       log.WithFields(map[string]interface{}{"component": "realtime_hub"}),
	}
}

// Register adds a connection for a user.
func (h *Hub) Register(userID uuid.UUID, conn Conn) *Client {
	c := newClient(userID, conn)

	h.mu.Lock()
	conns, ok := h.clients[userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[userID] = conns
	}
	conns[c] = struct{}{}
	userConns := len(conns)
	h.mu.Unlock()

	metrics.RealtimeConnections.Inc()
	h.logger.Info("realtime client connected", map[string]interface{}{
		"userId":      userID.String(),
		"connections": userConns,
	})
	return c
}

// Unregister removes and closes a connection. Calling it more than once
// for the same client is a no-op.
func (h *Hub) Unregister(c *Client) {
	if !h.remove(c) {
		return
	}
	c.close()
	metrics.RealtimeConnections.Dec()
	h.logger.Info("realtime client disconnected", map[string]interface{}{
		"userId": c.UserID.String(),
	})
}

func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.UserID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
	return true
}

func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) userClients(userID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.clients[userID]
	out := make([]*Client, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	return out
}

func (h *Hub) allClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	for _, conns := range h.clients {
		for c := range conns {
			out = append(out, c)
		}
	}
	return out
}

// SendRealtime writes payload to every connection of the user and reports
// whether at least one accepted it. Connections whose write fails are
// dropped from the registry.
func (h *Hub) SendRealtime(ctx context.Context, userID uuid.UUID, payload interface{}) bool {
	clients := h.userClients(userID)
	if len(clients) == 0 {
		return false
	}

	sent := 0
	for _, c := range clients {
		if err := c.WriteJSON(ctx, payload, h.writeTimeout); err != nil {
			h.logger.Warn("realtime write failed, dropping connection", map[string]interface{}{
				"userId": userID.String(),
				"error":  err.Error(),
			})
			h.Unregister(c)
			continue
		}
		sent++
	}
	return sent > 0
}

// Broadcast writes message to every connection and returns how many
// accepted it.
func (h *Hub) Broadcast(ctx context.Context, message interface{}) int {
	sent := 0
	for _, c := range h.allClients() {
		if err := c.WriteJSON(ctx, message, h.writeTimeout); err != nil {
			h.logger.Warn("realtime broadcast failed, dropping connection", map[string]interface{}{
				"userId": c.UserID.String(),
				"error":  err.Error(),
			})
			h.Unregister(c)
			continue
		}
		sent++
	}
	h.logger.Info("broadcast sent", map[string]interface{}{"recipients": sent})
	return sent
}

// ConnectedUsers is the number of distinct users with an open connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

// Heartbeat pings every connection each interval and drops clients that
// have not been heard from for two intervals. It returns when ctx ends.
func (h *Hub) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep(interval)
		}
	}
}

func (h *Hub) sweep(interval time.Duration) {
	for _, c := range h.allClients() {
		if time.Since(c.LastSeen()) > 2*interval {
			h.logger.Info("dropping stale realtime client", map[string]interface{}{
				"userId": c.UserID.String(),
			})
			h.Unregister(c)
			continue
		}
		if err := c.ping(time.Second); err != nil {
			h.Unregister(c)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, c := range h.allClients() {
		h.Unregister(c)
	}
}
