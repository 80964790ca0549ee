package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/notify"
	"account-market/internal/services"
)

// NotificationHandler serves the derived notification feed and the per-user
// live stream.
type NotificationHandler struct {
	notifications *services.NotificationService
	hub           *notify.Hub
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService, hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, hub: hub}
}

// Feed returns the caller's recent notifications, rebuilt from persisted
// state.
// GET /api/notifications
func (h *NotificationHandler) Feed(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	events, err := h.notifications.Feed(userID, queryInt(c, "limit", 20, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": events})
}

// Stream pushes the caller's live notifications over SSE. A short warm-up
// replay of the persisted feed covers the gap between page load and
// subscription.
// GET /api/notifications/stream
func (h *NotificationHandler) Stream(c *gin.Context) {
	claims, ok := streamClaims(c)
	if !ok {
		return
	}

	id, ch := h.hub.SubscribeUser(claims.UserID)
	defer h.hub.UnsubscribeUser(claims.UserID, id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	if recent, err := h.notifications.Feed(claims.UserID, 5); err == nil {
		for i := len(recent) - 1; i >= 0; i-- {
			writeEvent(c.Writer, recent[i])
		}
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			writeEvent(c.Writer, e)
		}
	}
}
