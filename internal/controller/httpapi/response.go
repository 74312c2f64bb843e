package httpapi

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/service"
	"github.com/gin-gonic/gin"
)

// Виды ошибок в ответе API
const (
	KindSlotUnavailable   = "slot_unavailable"
	KindInvalidTransition = "invalid_transition"
	KindNotFound          = "not_found"
	KindValidation        = "validation_failure"
	KindForbidden         = "forbidden"
	KindIOFailure         = "io_failure"
	KindUnauthenticated   = "unauthenticated"
	KindInternal          = "internal"
)

type ErrorResponse struct {
	Error         string                  `json:"error"`
	Kind          string                  `json:"kind"`
	CurrentStatus model.AppointmentStatus `json:"current_status,omitempty"`
}

func abortWithError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Kind: kind})
}

func badRequest(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, KindValidation, message)
}

// writeError переводит ошибку сервиса в HTTP-ответ
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var terr *service.TransitionError
	switch {
	case errors.As(err, &terr):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{
			Error:         err.Error(),
			Kind:          KindInvalidTransition,
			CurrentStatus: terr.Current,
		})
	case errors.Is(err, service.ErrSlotUnavailable):
		abortWithError(c, http.StatusConflict, KindSlotUnavailable, err.Error())
	case errors.Is(err, service.ErrValidation):
		abortWithError(c, http.StatusBadRequest, KindValidation, err.Error())
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, KindNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		abortWithError(c, http.StatusForbidden, KindForbidden, err.Error())
	case errors.Is(err, service.ErrIOFailure):
		// Детали хранилища наружу не отдаём
		abortWithError(c, http.StatusServiceUnavailable, KindIOFailure, "storage unavailable")
	default:
		abortWithError(c, http.StatusInternalServerError, KindInternal, "internal server error")
	}
}
