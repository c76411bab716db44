package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/services"
	"github.com/monocle-dev/crewboard/internal/utils"
)

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email" binding:"omitempty,email"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" binding:"omitempty,min=8"`
}

func (h *Handler) CreateUser(ctx *gin.Context) {
	var body CreateUserRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	user, err := h.Users.Register(ctx.Request.Context(), body.Name, body.Email, body.Password)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) LoginUser(ctx *gin.Context) {
	var body LoginUserRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	token, user, err := h.Users.Login(ctx.Request.Context(), body.Email, body.Password)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) Me(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	user, err := h.Users.Get(ctx.Request.Context(), identity.UserID)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"identity": identity, "user": user})
}

func (h *Handler) UpdateUser(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var body UpdateUserRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	user, err := h.Users.UpdateProfile(ctx.Request.Context(), identity, services.ProfileUpdate{
		Name:            body.Name,
		Email:           body.Email,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	})

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}
