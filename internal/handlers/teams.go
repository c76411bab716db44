package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/utils"
)

type CreateTeamRequest struct {
	Name      string `json:"name"`
	MemberIDs []uint `json:"memberIds"`
}

type AddMemberRequest struct {
	UserID uint   `json:"userId" binding:"required"`
	Role   string `json:"role"`
}

func (h *Handler) CreateTeam(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var body CreateTeamRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	team, err := h.Teams.Create(ctx.Request.Context(), identity, body.Name, body.MemberIDs)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, team)
}

func (h *Handler) GetTeam(ctx *gin.Context) {
	teamID, err := utils.GetIDParam(ctx, "team_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	team, err := h.Teams.Get(ctx.Request.Context(), teamID)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, team)
}

func (h *Handler) DeleteTeam(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	teamID, err := utils.GetIDParam(ctx, "team_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	if err := h.Teams.Delete(ctx.Request.Context(), identity, teamID); err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *Handler) AddTeamMember(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	teamID, err := utils.GetIDParam(ctx, "team_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var body AddMemberRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	member, err := h.Teams.AddMember(ctx.Request.Context(), identity, teamID, body.UserID, body.Role)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, member)
}

func (h *Handler) RemoveTeamMember(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	teamID, err := utils.GetIDParam(ctx, "team_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	userID, err := utils.GetIDParam(ctx, "user_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	if err := h.Teams.RemoveMember(ctx.Request.Context(), identity, teamID, userID); err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
