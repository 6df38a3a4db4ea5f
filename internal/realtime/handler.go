package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"notification-dispatcher/internal/common/logger"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type HandlerConfig struct {
	ReadLimit      int64
	PongWait       time.Duration
	AllowedOrigins []string
}

// Handler serves the realtime endpoints.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	config   HandlerConfig
	logger   logger.Logger
}

type welcomeMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type statusMessage struct {
	Type             string `json:"type"`
	Connected        bool   `json:"connected"`
	UserID           string `json:"user_id"`
	TotalConnections int    `json:"total_connections"`
}

type clientMessage struct {
	Action string `json:"action"`
}

type broadcastResult struct {
	Recipients int `json:"recipients"`
}

type Stats struct {
	ConnectedUsers   int `json:"connected_users"`
	TotalConnections int `json:"total_connections"`
}

func NewHandler(hub *Hub, cfg HandlerConfig, log logger.Logger) *Handler {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 4096
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}

	h := &Handler{
		hub:    hub,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "realtime_handler"}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeNotifications upgrades GET /ws/notifications?user_id=<uuid> and keeps
// the connection registered until the peer goes away.
func (h *Handler) ServeNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"detail": "user_id query parameter must be a valid UUID"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := h.hub.Register(userID, conn)
	defer h.hub.Unregister(client)

	ctx := r.Context()
	if err := client.WriteJSON(ctx, welcomeMessage{
		Type:    "connection",
		Status:  "connected",
		UserID:  userID.String(),
		Message: "Conectado a notificaciones en tiempo real",
	}, h.hub.writeTimeout); err != nil {
		return
	}

	conn.SetReadLimit(h.config.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	conn.SetPongHandler(func(string) error {
		client.Touch()
		return conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("realtime connection closed unexpectedly", map[string]interface{}{
					"userId": userID.String(),
					"error":  err.Error(),
				})
			}
			return
		}
		client.Touch()
		_ = conn.SetReadDeadline(time.Now().Add(h.config.PongWait))

		if err := h.handleMessage(r, client, string(data)); err != nil {
			return
		}
	}
}

func (h *Handler) handleMessage(r *http.Request, client *Client, text string) error {
	switch {
	case text == "ping":
		return client.WriteText(r.Context(), "pong", h.hub.writeTimeout)
	case strings.HasPrefix(text, "{"):
		var msg clientMessage
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			h.logger.Warn("invalid JSON from realtime client", map[string]interface{}{
				"userId": client.UserID.String(),
				"error":  err.Error(),
			})
			return nil
		}
		if msg.Action == "get_status" {
			return client.WriteJSON(r.Context(), statusMessage{
				Type:             "status",
				Connected:        true,
				UserID:           client.UserID.String(),
				TotalConnections: h.hub.TotalConnections(),
			}, h.hub.writeTimeout)
		}
	}
	return nil
}

// ServeStats reports connection counts.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Stats{
		ConnectedUsers:   h.hub.ConnectedUsers(),
		TotalConnections: h.hub.TotalConnections(),
	})
}

// ServeBroadcast pushes the posted JSON object to every open connection.
func (h *Handler) ServeBroadcast(w http.ResponseWriter, r *http.Request) {
	var message map[string]interface{}
	body := http.MaxBytesReader(w, r.Body, h.config.ReadLimit)
	if err := json.NewDecoder(body).Decode(&message); err != nil || message == nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"detail": "body must be a JSON object"})
		return
	}
	render.JSON(w, r, broadcastResult{Recipients: h.hub.Broadcast(r.Context(), message)})
}
