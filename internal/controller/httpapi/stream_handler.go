package httpapi

import (
	"io"
	"net/http"

	"github.com/Freeeeeet/guidance_scheduler/internal/events"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StreamEvents GET /api/v1/events
// Server-Sent Events: консультант получает общий топик, студент только свои записи.
func (h *Handler) StreamEvents(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var topic string
	switch {
	case actor.IsCounselor():
		topic = events.CounselorTopic
	case actor.StudentID != nil:
		topic = events.StudentTopic(*actor.StudentID)
	default:
		abortWithError(c, http.StatusForbidden, KindForbidden, "account has no event stream")
		return
	}

	ctx := c.Request.Context()
	sub, err := h.stream.Subscribe(ctx, topic)
	if err != nil {
		h.logger.Error("Failed to subscribe to event stream", zap.String("topic", topic), zap.Error(err))
		abortWithError(c, http.StatusServiceUnavailable, KindIOFailure, "event stream unavailable")
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	h.logger.Debug("Event stream opened",
		zap.String("topic", topic),
		zap.String("account", actor.UID.String()),
	)

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("appointment", ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
