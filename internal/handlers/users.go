package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/utils"
)

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) ApproveUser(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	userID, err := utils.GetIDParam(ctx, "user_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	user, err := h.Users.Approve(ctx.Request.Context(), identity, userID)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) ChangeUserRole(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	userID, err := utils.GetIDParam(ctx, "user_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var body ChangeRoleRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	user, err := h.Users.ChangeRole(ctx.Request.Context(), identity, userID, body.Role)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) DeleteUser(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	userID, err := utils.GetIDParam(ctx, "user_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	if err := h.Users.Delete(ctx.Request.Context(), identity, userID); err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
