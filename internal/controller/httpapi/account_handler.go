package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type linkTelegramRequest struct {
	Code string `json:"code" binding:"required"`
}

// CurrentAccount GET /api/v1/account/me
func (h *Handler) CurrentAccount(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, actor)
}

// LinkTelegram PUT /api/v1/account/telegram
// code выдаёт бот в ответ на /start.
func (h *Handler) LinkTelegram(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req linkTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code is required")
		return
	}

	if err := h.linker.LinkTelegram(c.Request.Context(), actor, req.Code); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UnlinkTelegram DELETE /api/v1/account/telegram
func (h *Handler) UnlinkTelegram(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.linker.UnlinkTelegram(c.Request.Context(), actor); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
