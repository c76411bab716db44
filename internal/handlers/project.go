package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/services"
	"github.com/monocle-dev/crewboard/internal/types"
	"github.com/monocle-dev/crewboard/internal/utils"
)

type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	TeamID      *uint   `json:"teamId"`
	MemberIDs   []uint  `json:"memberIds"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

type UpdateProjectRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Status      *string                `json:"status"`
	Priority    *string                `json:"priority"`
	StartDate   types.Optional[string] `json:"startDate"`
	EndDate     types.Optional[string] `json:"endDate"`
}

func (h *Handler) CreateProject(ctx *gin.Context) {
	identity, err := utils.GetCurrentUser(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var body CreateProjectRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	startDate, err := utils.ParseOptionalDate(body.StartDate)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	endDate, err := utils.ParseOptionalDate(body.EndDate)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	project, err := h.Provisioner.CreateProjectWithTeam(ctx.Request.Context(), identity, services.ProvisionInput{
		Name:        body.Name,
		Description: body.Description,
		TeamID:      body.TeamID,
		MemberIDs:   body.MemberIDs,
		Status:      body.Status,
		Priority:    body.Priority,
		StartDate:   startDate,
		EndDate:     endDate,
	})

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, project)
}

func (h *Handler) GetProject(ctx *gin.Context) {
	projectID, err := utils.GetIDParam(ctx, "project_id")

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	project, err := h.Provisioner.Get(ctx.Request.Context(), projectID)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, project)
}

func (h *Handler) UpdateProject(ctx *gin.Context) {
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

	var body UpdateProjectRequest

	if !h.bindJSON(ctx, &body) {
		return
	}

	startDate, err := optionalDate(body.StartDate)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	endDate, err := optionalDate(body.EndDate)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	project, err := h.Workflow.UpdateProject(ctx.Request.Context(), identity, projectID, services.ProjectPatch{
		Name:        body.Name,
		Description: body.Description,
		Status:      body.Status,
		Priority:    body.Priority,
		StartDate:   startDate,
		EndDate:     endDate,
	})

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, project)
}

func (h *Handler) DeleteProject(ctx *gin.Context) {
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

	if err := h.Workflow.DeleteProject(ctx.Request.Context(), identity, projectID); err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// optionalDate converts a nullable date field, keeping the difference
// between an omitted field and an explicit null.
func optionalDate(field types.Optional[string]) (types.Optional[time.Time], error) {
	if !field.Set {
		return types.Optional[time.Time]{}, nil
	}
	if field.Value == nil {
		return types.Null[time.Time](), nil
	}

	t, err := utils.ParseDate(*field.Value)

	if err != nil {
		return types.Optional[time.Time]{}, err
	}

	return types.Some(t), nil
}
