package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExportCalendar GET /api/v1/students/:studentId/appointments.ics
func (h *Handler) ExportCalendar(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	studentID := c.Param("studentId")
	body, err := h.calendar.ExportStudent(c.Request.Context(), actor, studentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="appointments.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
