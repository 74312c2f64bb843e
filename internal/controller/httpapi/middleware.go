package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	AccountHeader   = "X-Account-ID"
	RequestIDHeader = "X-Request-ID"

	actorKey     = "actor"
	requestIDKey = "request_id"

	requestIDMaxLen = 64
)

// RequestID берёт X-Request-ID из запроса или генерирует новый
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)

		c.Next()
	}
}

// RequestLogger пишет одну строку лога на запрос
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("Request rejected", fields...)
		default:
			logger.Info("Request completed", fields...)
		}
	}
}

// Actor определяет действующий аккаунт по заголовку X-Account-ID
func Actor(accounts AccountResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(AccountHeader)
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, KindUnauthenticated, "missing "+AccountHeader+" header")
			return
		}

		uid, err := uuid.Parse(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, KindUnauthenticated, "malformed "+AccountHeader+" header")
			return
		}

		account, err := accounts.ResolveByUID(c.Request.Context(), uid)
		if err != nil {
			_ = c.Error(err)
			abortWithError(c, http.StatusServiceUnavailable, KindIOFailure, "account directory unavailable")
			return
		}
		if account == nil {
			abortWithError(c, http.StatusUnauthorized, KindUnauthenticated, "unknown account")
			return
		}

		c.Set(actorKey, *account)
		c.Next()
	}
}

// mustActor достаёт аккаунт, положенный middleware Actor
func mustActor(c *gin.Context) (model.Account, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, KindUnauthenticated, "not authenticated")
		return model.Account{}, false
	}
	actor, ok := v.(model.Account)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, KindUnauthenticated, "not authenticated")
		return model.Account{}, false
	}
	return actor, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, name+": expected UUID")
		return uuid.Nil, false
	}
	return id, true
}
