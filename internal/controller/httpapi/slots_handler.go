package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/gin-gonic/gin"
)

type setDayRequest struct {
	Slots []model.SlotEntry `json:"slots"`
}

type bulkBlockRequest struct {
	Month  string   `json:"month" binding:"required"`
	Labels []string `json:"labels"`
}

// ListAllSlots GET /api/v1/slots/:date
func (h *Handler) ListAllSlots(c *gin.Context) {
	views, err := h.availability.ListAllSlots(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": c.Param("date"), "slots": views})
}

// ListAvailableSlots GET /api/v1/slots/:date/available
func (h *Handler) ListAvailableSlots(c *gin.Context) {
	labels, err := h.availability.ListAvailableSlots(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": c.Param("date"), "slots": labels})
}

// SetDay PUT /api/v1/slots/:date
func (h *Handler) SetDay(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req setDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	day, err := h.slots.SetDay(c.Request.Context(), actor, c.Param("date"), req.Slots)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, day)
}

// BulkBlock POST /api/v1/slots/block
func (h *Handler) BulkBlock(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req bulkBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "month is required")
		return
	}

	days, err := h.slots.BulkBlock(c.Request.Context(), actor, req.Month, req.Labels)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"month": req.Month, "days": days})
}
