package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/gin-gonic/gin"
)

// ListNotifications GET /api/v1/notifications?unread=true
func (h *Handler) ListNotifications(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	list, err := h.notifications.ListForRecipient(c.Request.Context(), actor, c.Query("unread") == "true")
	if err != nil {
		writeError(c, err)
		return
	}

	if list == nil {
		list = []*model.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// UnreadCount GET /api/v1/notifications/unread-count
func (h *Handler) UnreadCount(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkNotificationRead POST /api/v1/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AcknowledgeNotification POST /api/v1/notifications/:id/acknowledge
func (h *Handler) AcknowledgeNotification(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.Acknowledge(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
