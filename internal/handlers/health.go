package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheck(ctx *gin.Context) {
	status, code := "ok", http.StatusOK

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(pingCtx)
	}

	if err != nil {
		h.Logger.Error("health check failed", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}

	ctx.JSON(code, gin.H{
		"status":    status,
		"message":   "Crewboard is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
