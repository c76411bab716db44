package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/metrics"
	"github.com/monocle-dev/crewboard/internal/types"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates the caller's request id or generates one.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		ctx.Set(types.ContextRequestIDKey, id)
		ctx.Header(RequestIDHeader, id)
		ctx.Next()
	}
}

// RequestLogger logs one line per request and records request metrics.
func RequestLogger(logger *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		duration := time.Since(start)

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := ctx.Writer.Status()

		m.ObserveRequest(ctx.Request.Method, route, status, duration)

		attrs := []any{
			"method", ctx.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", duration.Milliseconds(),
			"client_ip", ctx.ClientIP(),
			"request_id", ctx.GetString(types.ContextRequestIDKey),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// Recovery turns a panic into a generic 500 and logs the stack.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					"error", err,
					"request_id", ctx.GetString(types.ContextRequestIDKey),
					"stack", string(debug.Stack()),
				)
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
					"kind":  apperr.KindInternal,
				})
			}
		}()
		ctx.Next()
	}
}
