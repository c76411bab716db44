package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/services"
	"github.com/monocle-dev/crewboard/internal/types"
	"github.com/monocle-dev/crewboard/internal/utils"
)

type CreateGoalRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Deadline    *string `json:"deadline"`
}

type UpdateGoalRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *string                `json:"status"`
	Deadline    types.Optional[string] `json:"deadline"`
}

func (h *Handler) CreateGoal(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	projectID, err := utils.GetIDParam(ctx, "project_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var body CreateGoalRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	deadline, err := utils.ParseOptionalDate(body.Deadline)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	goal, err := h.Workflow.CreateGoal(ctx.Request.Context(), identity, projectID, services.GoalInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Deadline:    deadline,
	})

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, goal)
}

func (h *Handler) UpdateGoal(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	goalID, err := utils.GetIDParam(ctx, "goal_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var body UpdateGoalRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	deadline, err := optionalDate(body.Deadline)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	goal, err := h.Workflow.UpdateGoal(ctx.Request.Context(), identity, goalID, services.GoalPatch{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Deadline:    deadline,
	})

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, goal)
}
