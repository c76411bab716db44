package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/notify"
	"github.com/monocle-dev/crewboard/internal/policy"
	"github.com/monocle-dev/crewboard/internal/types"
)

// TaskPatch holds the fields of a task update. Optional fields distinguish
// "leave unchanged" from an explicit null.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *string
	Deadline     types.Optional[time.Time]
	AssignedToID types.Optional[uint]
	GoalID       *uint
}

type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *string
	Priority    *string
	StartDate   types.Optional[time.Time]
	EndDate     types.Optional[time.Time]
}

type GoalInput struct {
	Title       string
	Description string
	Status      string
	Deadline    *time.Time
}

type GoalPatch struct {
	Title       *string
	Description *string
	Status      *string
	Deadline    types.Optional[time.Time]
}

type TaskInput struct {
	Title        string
	Description  string
	Status       string
	Deadline     *time.Time
	AssignedToID *uint
}

// Workflow applies status transitions and field updates to projects, goals
// and tasks. Notifications are emitted after the write commits.
type Workflow struct {
	db       *gorm.DB
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewWorkflow(db *gorm.DB, notifier notify.Notifier, logger *slog.Logger) *Workflow {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Workflow{db: db, notifier: notifier, logger: logger}
}

func (w *Workflow) UpdateTask(ctx context.Context, actor auth.Identity, taskID uint, patch TaskPatch) (*models.Task, error) {
	if patch.Status != nil && !types.IsValidStatus(*patch.Status) {
		return nil, invalidStatus(*patch.Status)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperr.Validation("Task title cannot be empty")
	}

	var prev, next models.Task

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		if err := tx.Preload("Goal.Project").First(&prev, taskID).Error; err != nil {
			return notFound(err, "Task not found")
		}
		project := prev.Goal.Project

		reassigning := patch.AssignedToID.Set && !sameID(prev.AssignedToID, patch.AssignedToID.Value)
		editing := patch.Title != nil || patch.Description != nil || patch.Status != nil ||
			patch.Deadline.Set || patch.GoalID != nil

		if reassigning {
			if err := policy.Authorize(actor, policy.ReassignTask, policy.Resource{}); err != nil {
				return err
			}
		}
		if editing || !reassigning {
			member, err := isActiveMember(tx, project.TeamID, actor.UserID)

			if err != nil {
				return err
			}

			res := policy.Resource{AssigneeID: prev.AssignedToID, ProjectCreatorID: project.CreatedByID, IsTeamMember: member}
			if err := policy.Authorize(actor, policy.UpdateTaskStatus, res); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}

		if patch.GoalID != nil && *patch.GoalID != prev.GoalID {
			var goal models.Goal

			if err := tx.First(&goal, *patch.GoalID).Error; err != nil {
				return notFound(err, "Goal not found")
			}
			if goal.ProjectID != project.ID {
				return apperr.Validation("Tasks can only move between goals of the same project")
			}
			updates["goal_id"] = goal.ID
		}

		if reassigning {
			if patch.AssignedToID.Value != nil {
				if err := checkAssignee(tx, project.TeamID, *patch.AssignedToID.Value); err != nil {
					return err
				}
			}
			updates["assigned_to_id"] = patch.AssignedToID.Value
		}

		if patch.Deadline.Set {
			if err := checkDeadline(patch.Deadline.Value, project.StartDate, project.EndDate); err != nil {
				return err
			}
			updates["deadline"] = patch.Deadline.Value
		}

		if patch.Title != nil {
			updates["title"] = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Status != nil {
			updates["status"] = *patch.Status
		}

		if len(updates) == 0 {
			next = prev
			return nil
		}

		if err := tx.Model(&models.Task{}).Where("id = ?", prev.ID).Updates(updates).Error; err != nil {
			return err
		}

		if err := recordActivity(tx, actor.UserID, ActionUpdate, types.EntityTask, prev.ID, changes(updates)); err != nil {
			return err
		}

		return tx.First(&next, prev.ID).Error
	})

	if err != nil {
		return nil, err
	}

	w.logger.Info("task updated", "task_id", next.ID, "actor", actor.UserID, "status", next.Status)

	w.notifier.Notify(ctx, notify.TaskUpdatedEvent(stripTask(prev), next, actor.UserID))

	return &next, nil
}

func (w *Workflow) UpdateProject(ctx context.Context, actor auth.Identity, projectID uint, patch ProjectPatch) (*models.Project, error) {
	if patch.Status != nil && !types.IsValidStatus(*patch.Status) {
		return nil, invalidStatus(*patch.Status)
	}
	if patch.Priority != nil && !types.IsValidPriority(*patch.Priority) {
		return nil, apperr.Validation("Invalid priority: " + *patch.Priority)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Validation("Project name cannot be empty")
	}

	var prev models.Project
	var next *models.Project

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		if err := tx.First(&prev, projectID).Error; err != nil {
			return notFound(err, "Project not found")
		}

		if err := policy.Authorize(actor, policy.UpdateProject, policy.Resource{CreatedByID: prev.CreatedByID}); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		start, end := prev.StartDate, prev.EndDate

		if patch.StartDate.Set {
			start = patch.StartDate.Value
			updates["start_date"] = start
		}
		if patch.EndDate.Set {
			end = patch.EndDate.Value
			updates["end_date"] = end
		}
		if err := checkWindow(start, end); err != nil {
			return err
		}
		if patch.StartDate.Set || patch.EndDate.Set {
			if err := checkScheduled(tx, prev.ID, start, end); err != nil {
				return err
			}
		}

		if patch.Name != nil {
			updates["name"] = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Status != nil {
			updates["status"] = *patch.Status
		}
		if patch.Priority != nil {
			updates["priority"] = *patch.Priority
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Project{}).Where("id = ?", prev.ID).Updates(updates).Error; err != nil {
				return err
			}
			if err := recordActivity(tx, actor.UserID, ActionUpdate, types.EntityProject, prev.ID, changes(updates)); err != nil {
				return err
			}
		}

		var err error
		next, err = loadProject(tx, prev.ID)
		return err
	})

	if err != nil {
		return nil, err
	}

	w.logger.Info("project updated", "project_id", next.ID, "actor", actor.UserID, "status", next.Status)

	w.notifier.Notify(ctx, notify.ProjectUpdatedEvent(prev, *next, actor.UserID))

	return next, nil
}

func (w *Workflow) DeleteProject(ctx context.Context, actor auth.Identity, projectID uint) error {
	if err := policy.Authorize(actor, policy.DeleteProject, policy.Resource{}); err != nil {
		return err
	}

	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		var project models.Project

		if err := tx.First(&project, projectID).Error; err != nil {
			return notFound(err, "Project not found")
		}

		if err := tx.Delete(&models.Project{}, project.ID).Error; err != nil {
			return err
		}

		return recordActivity(tx, actor.UserID, ActionDelete, types.EntityProject, project.ID, map[string]interface{}{
			"name":   project.Name,
			"teamId": project.TeamID,
		})
	})
}

func (w *Workflow) CreateGoal(ctx context.Context, actor auth.Identity, projectID uint, in GoalInput) (*models.Goal, error) {
	in.Title = strings.TrimSpace(in.Title)

	if in.Title == "" {
		return nil, apperr.Validation("Goal title is required")
	}
	if in.Status == "" {
		in.Status = types.StatusTodo
	}
	if !types.IsValidStatus(in.Status) {
		return nil, invalidStatus(in.Status)
	}

	var goal models.Goal

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		var project models.Project

		if err := tx.First(&project, projectID).Error; err != nil {
			return notFound(err, "Project not found")
		}

		if err := policy.Authorize(actor, policy.ManageGoals, policy.Resource{ProjectCreatorID: project.CreatedByID}); err != nil {
			return err
		}

		if err := checkDeadline(in.Deadline, project.StartDate, project.EndDate); err != nil {
			return err
		}

		creatorID := actor.UserID
		goal = models.Goal{
			Title:       in.Title,
			Description: in.Description,
			Status:      in.Status,
			Deadline:    in.Deadline,
			ProjectID:   project.ID,
			CreatedByID: &creatorID,
		}

		if err := tx.Create(&goal).Error; err != nil {
			return err
		}

		return recordActivity(tx, actor.UserID, ActionCreate, types.EntityGoal, goal.ID, map[string]interface{}{"projectId": project.ID})
	})

	if err != nil {
		return nil, err
	}

	return &goal, nil
}

func (w *Workflow) UpdateGoal(ctx context.Context, actor auth.Identity, goalID uint, patch GoalPatch) (*models.Goal, error) {
	if patch.Status != nil && !types.IsValidStatus(*patch.Status) {
		return nil, invalidStatus(*patch.Status)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperr.Validation("Goal title cannot be empty")
	}

	var goal models.Goal

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		if err := tx.Preload("Project").First(&goal, goalID).Error; err != nil {
			return notFound(err, "Goal not found")
		}
		project := goal.Project

		if err := policy.Authorize(actor, policy.ManageGoals, policy.Resource{ProjectCreatorID: project.CreatedByID}); err != nil {
			return err
		}

		updates := map[string]interface{}{}

		if patch.Deadline.Set {
			if err := checkDeadline(patch.Deadline.Value, project.StartDate, project.EndDate); err != nil {
				return err
			}
			updates["deadline"] = patch.Deadline.Value
		}
		if patch.Title != nil {
			updates["title"] = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Status != nil {
			updates["status"] = *patch.Status
		}

		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&models.Goal{}).Where("id = ?", goal.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := recordActivity(tx, actor.UserID, ActionUpdate, types.EntityGoal, goal.ID, changes(updates)); err != nil {
			return err
		}

		goal = models.Goal{}
		return tx.First(&goal, goalID).Error
	})

	if err != nil {
		return nil, err
	}

	goal.Project = nil
	return &goal, nil
}

func (w *Workflow) CreateTask(ctx context.Context, actor auth.Identity, goalID uint, in TaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)

	if in.Title == "" {
		return nil, apperr.Validation("Task title is required")
	}
	if in.Status == "" {
		in.Status = types.StatusTodo
	}
	if !types.IsValidStatus(in.Status) {
		return nil, invalidStatus(in.Status)
	}

	var task models.Task

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		var goal models.Goal

		if err := tx.Preload("Project").First(&goal, goalID).Error; err != nil {
			return notFound(err, "Goal not found")
		}
		project := goal.Project

		if err := policy.Authorize(actor, policy.CreateTask, policy.Resource{ProjectCreatorID: project.CreatedByID}); err != nil {
			return err
		}

		if in.AssignedToID != nil {
			if err := checkAssignee(tx, project.TeamID, *in.AssignedToID); err != nil {
				return err
			}
		}

		if err := checkDeadline(in.Deadline, project.StartDate, project.EndDate); err != nil {
			return err
		}

		creatorID := actor.UserID
		task = models.Task{
			Title:        in.Title,
			Description:  in.Description,
			Status:       in.Status,
			Deadline:     in.Deadline,
			GoalID:       goal.ID,
			AssignedToID: in.AssignedToID,
			CreatedByID:  &creatorID,
		}

		if err := tx.Create(&task).Error; err != nil {
			return err
		}

		return recordActivity(tx, actor.UserID, ActionCreate, types.EntityTask, task.ID, map[string]interface{}{"goalId": goal.ID})
	})

	if err != nil {
		return nil, err
	}

	w.notifier.Notify(ctx, notify.TaskCreatedEvent(task, actor.UserID))

	return &task, nil
}

// checkAssignee requires userID to name an existing user who is an active
// member of teamID.
func checkAssignee(tx *gorm.DB, teamID, userID uint) error {
	var user models.User

	if err := tx.Select("id").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindAssigneeNotFound, "Assignee does not exist")
		}
		return err
	}

	member, err := isActiveMember(tx, teamID, userID)

	if err != nil {
		return err
	}
	if !member {
		return apperr.New(apperr.KindAssigneeNotMember, "Assignee is not a member of the project's team")
	}
	return nil
}

func invalidStatus(status string) error {
	return apperr.New(apperr.KindInvalidStatus, "Invalid status: "+status)
}

func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(message)
	}
	return err
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func changes(updates map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"changes": updates}
}

func stripTask(t models.Task) models.Task {
	t.Goal = nil
	return t
}
