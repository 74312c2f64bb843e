package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter собирает gin.Engine со всеми маршрутами API
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(Actor(h.accounts))
	{
		slots := v1.Group("/slots")
		{
			slots.GET("/:date", h.ListAllSlots)
			slots.GET("/:date/available", h.ListAvailableSlots)
			slots.PUT("/:date", h.SetDay)
			slots.POST("/block", h.BulkBlock)
		}

		appointments := v1.Group("/appointments")
		{
			appointments.POST("", h.CreateAppointment)
			appointments.GET("", h.ListAppointments)
			appointments.GET("/:id", h.GetAppointment)
			appointments.POST("/:id/approve", h.ApproveAppointment)
			appointments.POST("/:id/reject", h.RejectAppointment)
			appointments.POST("/:id/complete", h.CompleteAppointment)
			appointments.POST("/:id/cancel", h.CancelAppointment)
			appointments.POST("/:id/acknowledge", h.AcknowledgeAppointment)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.ListNotifications)
			notifications.GET("/unread-count", h.UnreadCount)
			notifications.POST("/:id/read", h.MarkNotificationRead)
			notifications.POST("/:id/acknowledge", h.AcknowledgeNotification)
		}

		account := v1.Group("/account")
		{
			account.GET("/me", h.CurrentAccount)
			account.PUT("/telegram", h.LinkTelegram)
			account.DELETE("/telegram", h.UnlinkTelegram)
		}

		v1.GET("/dashboard/counts", h.DashboardCounts)
		v1.GET("/events", h.StreamEvents)
		v1.GET("/students/:studentId/appointments.ics", h.ExportCalendar)
	}

	return r
}
