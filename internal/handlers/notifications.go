package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/utils"
)

func (h *Handler) ListNotifications(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	unreadOnly, _ := strconv.ParseBool(ctx.Query("unread"))

	notifications, err := h.Users.Notifications(ctx.Request.Context(), userID, unreadOnly)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, notifications)
}

func (h *Handler) MarkNotificationRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	notificationID, err := utils.GetIDParam(ctx, "notification_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	notification, err := h.Users.MarkRead(ctx.Request.Context(), userID, notificationID)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, notification)
}
