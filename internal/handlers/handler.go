package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/realtime"
	"github.com/monocle-dev/crewboard/internal/services"
	"github.com/monocle-dev/crewboard/internal/types"
)

// Handler holds the dependencies shared by every HTTP handler.
type Handler struct {
	DB             *gorm.DB
	Users          *services.Users
	Teams          *services.Teams
	Provisioner    *services.Provisioner
	Workflow       *services.Workflow
	Hub            *realtime.Hub
	Logger         *slog.Logger
	AllowedOrigins []string
}

// respondError writes the error body for err. Internal errors are logged
// and answered with a generic message.
func (h *Handler) respondError(ctx *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	if kind == apperr.KindInternal {
		h.Logger.Error("request failed",
			"method", ctx.Request.Method,
			"route", ctx.FullPath(),
			"request_id", ctx.GetString(types.ContextRequestIDKey),
			"error", err,
		)
	}

	ctx.AbortWithStatusJSON(status, gin.H{
		"error": apperr.Message(err),
		"kind":  kind,
	})
}

func (h *Handler) bindJSON(ctx *gin.Context, body interface{}) bool {
	if err := ctx.ShouldBindJSON(body); err != nil {
		h.respondError(ctx, apperr.Wrap(apperr.KindValidation, err, "Invalid request"))
		return false
	}
	return true
}
