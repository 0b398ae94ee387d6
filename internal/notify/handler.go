package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/pkg/metrics"
	"beastfood/pkg/utils"
)

const (
	heartbeatInterval = 25 * time.Second
	wsWriteWait       = 10 * time.Second
)

type Handler struct {
	Service   *Service
	Heartbeat time.Duration
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc, Heartbeat: heartbeatInterval}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.Use(requireAuth)
	rg.GET("", h.list)
	rg.GET("/unread-count", h.unreadCount)
	rg.PUT("/read-all", h.markAllRead)
	rg.PUT("/:id/read", h.markRead)
	rg.GET("/stream", h.stream)
	rg.GET("/ws", h.websocket)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := auth.MustGetClaims(c).UserID

	items, err := h.Service.Repo.List(c.Request.Context(), userID, c.Query("unread_only") == "true", limit, offset)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items, "limit": limit, "offset": offset})
}

func (h *Handler) unreadCount(c *gin.Context) {
	n, err := h.Service.Repo.UnreadCount(c.Request.Context(), auth.MustGetClaims(c).UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) markRead(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := auth.MustGetClaims(c).UserID

	ok, err := h.Service.Repo.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	h.Service.PushUnreadCount(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *Handler) markAllRead(c *gin.Context) {
	userID := auth.MustGetClaims(c).UserID
	n, err := h.Service.Repo.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	h.Service.PushUnreadCount(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// stream serves the SSE transport: an initial unread_count event, then one
// event per delivery and a comment line every heartbeat.
func (h *Handler) stream(c *gin.Context) {
	userID := auth.MustGetClaims(c).UserID
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	sub := h.Service.Registry.Subscribe(userID)
	defer h.Service.Registry.Unsubscribe(sub)

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.Service.PushUnreadCount(c.Request.Context(), userID)

	ticker := time.NewTicker(h.heartbeat())
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev := <-sub.Outbound:
			data, err := json.Marshal(ev.Data())
			if err != nil {
				h.Service.Log.Warn("marshal sse event failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
			metrics.NotificationsDelivered.WithLabelValues("sse").Inc()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (h *Handler) websocket(c *gin.Context) {
	userID := auth.MustGetClaims(c).UserID
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	sub := h.Service.Registry.Subscribe(userID)
	defer h.Service.Registry.Unsubscribe(sub)

	// Reads only detect the close; inbound frames are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.Service.PushUnreadCount(c.Request.Context(), userID)

	ticker := time.NewTicker(h.heartbeat())
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-sub.Done():
			return
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev := <-sub.Outbound:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteJSON(wsMessage{Type: ev.Type, Data: ev.Data()}); err != nil {
				return
			}
			metrics.NotificationsDelivered.WithLabelValues("websocket").Inc()
		}
	}
}

func (h *Handler) heartbeat() time.Duration {
	if h.Heartbeat > 0 {
		return h.Heartbeat
	}
	return heartbeatInterval
}
