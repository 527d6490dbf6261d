package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenapp/admin-backend/internal/platform/ctxutil"
	"github.com/lumenapp/admin-backend/internal/sse"
)

type EventsHandler struct {
	hub *sse.Hub
}

func NewEventsHandler(hub *sse.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// GET /api/admin/events?channels=runs,runs:<migrationId>
//
// Streams run and config events over SSE. Without a channels parameter the
// client gets the firehose "runs" channel.
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{"message": "event stream unavailable", "code": "upstream_failure"},
		})
		return
	}

	adminID := uuid.Nil
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		adminID = rd.AdminID
	}

	client := h.hub.NewClient(adminID)
	defer h.hub.CloseClient(client)

	channels := []string{sse.ChannelRuns}
	if raw := strings.TrimSpace(c.Query("channels")); raw != "" {
		channels = channels[:0]
		for _, ch := range strings.Split(raw, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				channels = append(channels, ch)
			}
		}
	}
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
