package httpapi

import (
	"context"
	"net/http"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type reasonRequest struct {
	Reason string `json:"reason"`
}

// CreateAppointment POST /api/v1/appointments
func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req service.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.StudentID == "" && actor.StudentID != nil {
		req.StudentID = *actor.StudentID
	}

	a, err := h.appointments.Book(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, a)
}

// GetAppointment GET /api/v1/appointments/:id
func (h *Handler) GetAppointment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.appointments.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !actor.IsCounselor() && !actor.OwnsStudentID(a.StudentID) {
		abortWithError(c, http.StatusForbidden, KindForbidden, "appointment belongs to another student")
		return
	}

	c.JSON(http.StatusOK, a)
}

// ListAppointments GET /api/v1/appointments?status=&date=&studentId=
// Студент видит только свои записи; фильтры status и date доступны консультанту.
func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	studentID := c.Query("studentId")
	status := c.Query("status")
	date := c.Query("date")

	var (
		list []*model.Appointment
		err  error
	)

	switch {
	case !actor.IsCounselor():
		if actor.StudentID == nil || (studentID != "" && !actor.OwnsStudentID(studentID)) {
			abortWithError(c, http.StatusForbidden, KindForbidden, "students may only list their own appointments")
			return
		}
		list, err = h.appointments.ListByStudent(ctx, *actor.StudentID)
		if err == nil {
			h.scanReminders(ctx, *actor.StudentID, list)
		}
	case studentID != "":
		list, err = h.appointments.ListByStudent(ctx, studentID)
	case status != "":
		list, err = h.appointments.ListByStatus(ctx, model.AppointmentStatus(status))
	case date != "":
		list, err = h.appointments.ListByDate(ctx, date)
	default:
		list, err = h.appointments.ListByStatus(ctx, model.AppointmentStatusPending)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	if list == nil {
		list = []*model.Appointment{}
	}
	c.JSON(http.StatusOK, gin.H{"appointments": list})
}

// scanReminders напоминания не ждут следующего тика планировщика; ошибка не мешает ответу
func (h *Handler) scanReminders(ctx context.Context, studentID string, list []*model.Appointment) {
	if h.reminders == nil {
		return
	}

	if _, err := h.reminders.Scan(ctx, studentID, list, h.now()); err != nil {
		h.logger.Warn("Eager reminder scan failed",
			zap.String("student_id", studentID),
			zap.Error(err),
		)
	}
}

// ApproveAppointment POST /api/v1/appointments/:id/approve
func (h *Handler) ApproveAppointment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	h.respondAppointment(c)(h.appointments.Approve(c.Request.Context(), actor, id))
}

// RejectAppointment POST /api/v1/appointments/:id/reject
func (h *Handler) RejectAppointment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	req, ok := bindReason(c)
	if !ok {
		return
	}

	h.respondAppointment(c)(h.appointments.Reject(c.Request.Context(), actor, id, req.Reason))
}

// CompleteAppointment POST /api/v1/appointments/:id/complete
func (h *Handler) CompleteAppointment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	h.respondAppointment(c)(h.appointments.Complete(c.Request.Context(), actor, id))
}

// CancelAppointment POST /api/v1/appointments/:id/cancel
// Консультант отменяет от имени офиса, студент от своего имени.
func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	req, ok := bindReason(c)
	if !ok {
		return
	}

	if actor.IsCounselor() {
		h.respondAppointment(c)(h.appointments.CancelByGuidance(c.Request.Context(), actor, id, req.Reason))
		return
	}
	h.respondAppointment(c)(h.appointments.CancelByStudent(c.Request.Context(), actor, id, req.Reason))
}

// AcknowledgeAppointment POST /api/v1/appointments/:id/acknowledge
func (h *Handler) AcknowledgeAppointment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	h.respondAppointment(c)(h.appointments.Acknowledge(c.Request.Context(), actor, id))
}

// DashboardCounts GET /api/v1/dashboard/counts
func (h *Handler) DashboardCounts(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	counts, err := h.appointments.Counts(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

func (h *Handler) respondAppointment(c *gin.Context) func(*model.Appointment, error) {
	return func(a *model.Appointment, err error) {
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// bindReason читает необязательное тело {reason}
func bindReason(c *gin.Context) (reasonRequest, bool) {
	var req reasonRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return req, false
	}
	return req, true
}
