package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/services"
	"github.com/monocle-dev/crewboard/internal/types"
	"github.com/monocle-dev/crewboard/internal/utils"
)

type CreateTaskRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	Deadline     *string `json:"deadline"`
	AssignedToID *uint   `json:"assignedToId"`
}

type UpdateTaskRequest struct {
	Title        *string                `json:"title"`
	Description  *string                `json:"description"`
	Status       *string                `json:"status"`
	Deadline     types.Optional[string] `json:"deadline"`
	AssignedToID types.Optional[uint]   `json:"assignedToId"`
	GoalID       *uint                  `json:"goalId"`
}

func (h *Handler) CreateTask(ctx *gin.Context) {
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

	var body CreateTaskRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	deadline, err := utils.ParseOptionalDate(body.Deadline)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	task, err := h.Workflow.CreateTask(ctx.Request.Context(), identity, goalID, services.TaskInput{
		Title:        body.Title,
		Description:  body.Description,
		Status:       body.Status,
		Deadline:     deadline,
		AssignedToID: body.AssignedToID,
	})

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, task)
}

func (h *Handler) UpdateTask(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	taskID, err := utils.GetIDParam(ctx, "task_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var body UpdateTaskRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	deadline, err := optionalDate(body.Deadline)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	task, err := h.Workflow.UpdateTask(ctx.Request.Context(), identity, taskID, services.TaskPatch{
		Title:        body.Title,
		Description:  body.Description,
		Status:       body.Status,
		Deadline:     deadline,
		AssignedToID: body.AssignedToID,
		GoalID:       body.GoalID,
	})

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, task)
}
