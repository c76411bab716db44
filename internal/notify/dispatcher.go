package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/metrics"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/types"
)

// Publisher pushes a persisted notification to live clients.
type Publisher interface {
	Publish(userID uint, n models.Notification)
}

// Dispatcher computes the audience of an event and persists one
// Notification per recipient. Failures are logged and swallowed.
type Dispatcher struct {
	db        *gorm.DB
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher Publisher
}

func NewDispatcher(db *gorm.DB, logger *slog.Logger, m *metrics.Metrics, publisher Publisher) *Dispatcher {
	return &Dispatcher{db: db, logger: logger, metrics: m, publisher: publisher}
}

func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	d.Dispatch(ctx, ev)
}

// Dispatch persists the notifications for ev and returns them. It never
// fails; a nil result means nothing was delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (sent []models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification dispatch panicked", "event", ev.Type, "panic", r)
			sent = nil
		}
	}()

	rows, err := d.Audience(ctx, ev)
	if err != nil {
		d.logger.Error("failed to resolve notification audience", "event", ev.Type, "error", err)
		d.metrics.Notification(string(ev.Type), "failed")
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	if err := d.db.WithContext(ctx).Create(&rows).Error; err != nil {
		d.logger.Error("failed to persist notifications", "event", ev.Type, "recipients", len(rows), "error", err)
		for _, n := range rows {
			d.metrics.Notification(n.Type, "failed")
		}
		return nil
	}

	for _, n := range rows {
		d.metrics.Notification(n.Type, "sent")
		if d.publisher != nil {
			d.publisher.Publish(n.UserID, n)
		}
	}

	d.logger.Debug("notifications dispatched", "event", ev.Type, "recipients", len(rows))
	return rows
}

// Audience returns the unsaved notification rows ev produces.
func (d *Dispatcher) Audience(ctx context.Context, ev Event) ([]models.Notification, error) {
	switch ev.Type {
	case ProjectCreated:
		return d.projectCreated(ctx, ev)
	case ProjectUpdated:
		return d.projectUpdated(ctx, ev)
	case TaskCreated:
		return taskCreated(ev), nil
	case TaskUpdated:
		return taskUpdated(ev), nil
	case TeamMemberAdded:
		return teamMemberAdded(ev), nil
	}
	return nil, fmt.Errorf("unknown event type %q", ev.Type)
}

// Project creation is broadcast to every active team member and project
// member except the creator.
func (d *Dispatcher) projectCreated(ctx context.Context, ev Event) ([]models.Notification, error) {
	p := ev.Project
	if p == nil {
		return nil, fmt.Errorf("project created event without project")
	}

	teamIDs, err := d.activeTeamMembers(ctx, p.TeamID)
	if err != nil {
		return nil, err
	}
	var projectIDs []uint
	if err := d.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ?", p.ID).Pluck("user_id", &projectIDs).Error; err != nil {
		return nil, err
	}

	creator := ev.ActorID
	if p.CreatedByID != nil {
		creator = *p.CreatedByID
	}

	var rows []models.Notification
	for _, userID := range unique(append(teamIDs, projectIDs...), creator) {
		rows = append(rows, models.Notification{
			UserID:            userID,
			Title:             "New project",
			Message:           fmt.Sprintf("You have been added to project %q", p.Name),
			Type:              types.NotificationProjectCreated,
			RelatedEntityType: types.EntityProject,
			RelatedEntityID:   p.ID,
		})
	}
	return rows, nil
}

func (d *Dispatcher) projectUpdated(ctx context.Context, ev Event) ([]models.Notification, error) {
	p, prev := ev.Project, ev.PreviousProject
	if p == nil || prev == nil {
		return nil, fmt.Errorf("project updated event without project snapshots")
	}

	var rows []models.Notification
	skip := []uint{ev.ActorID}

	if enteredCompleted(prev.Status, p.Status) && p.CreatedByID != nil {
		rows = append(rows, models.Notification{
			UserID:            *p.CreatedByID,
			Title:             "Project completed",
			Message:           fmt.Sprintf("Project %q was marked completed", p.Name),
			Type:              types.NotificationTaskCompleted,
			RelatedEntityType: types.EntityProject,
			RelatedEntityID:   p.ID,
		})
		skip = append(skip, *p.CreatedByID)
	}

	members, err := d.activeTeamMembers(ctx, p.TeamID)
	if err != nil {
		return nil, err
	}
	for _, userID := range unique(members, skip...) {
		rows = append(rows, models.Notification{
			UserID:            userID,
			Title:             "Project updated",
			Message:           fmt.Sprintf("Project %q was updated", p.Name),
			Type:              types.NotificationProjectUpdated,
			RelatedEntityType: types.EntityProject,
			RelatedEntityID:   p.ID,
		})
	}
	return rows, nil
}

func taskCreated(ev Event) []models.Notification {
	if ev.Task == nil || ev.Task.AssignedToID == nil {
		return nil
	}
	return []models.Notification{assignedNotification(*ev.Task)}
}

// Assignment is targeted at the new assignee only; completion goes to the
// creator and the assignee, once each.
func taskUpdated(ev Event) []models.Notification {
	t, prev := ev.Task, ev.PreviousTask
	if t == nil || prev == nil {
		return nil
	}

	var rows []models.Notification

	if t.AssignedToID != nil && (prev.AssignedToID == nil || *prev.AssignedToID != *t.AssignedToID) {
		rows = append(rows, assignedNotification(*t))
	}

	if enteredCompleted(prev.Status, t.Status) {
		var audience []uint
		if t.CreatedByID != nil {
			audience = append(audience, *t.CreatedByID)
		}
		if t.AssignedToID != nil {
			audience = append(audience, *t.AssignedToID)
		}
		for _, userID := range unique(audience) {
			rows = append(rows, models.Notification{
				UserID:            userID,
				Title:             "Task completed",
				Message:           fmt.Sprintf("Task %q was marked completed", t.Title),
				Type:              types.NotificationTaskCompleted,
				RelatedEntityType: types.EntityTask,
				RelatedEntityID:   t.ID,
			})
		}
	}

	return rows
}

func teamMemberAdded(ev Event) []models.Notification {
	if ev.Team == nil || ev.UserID == 0 {
		return nil
	}
	return []models.Notification{{
		UserID:            ev.UserID,
		Title:             "Added to team",
		Message:           fmt.Sprintf("You have been added to team %q", ev.Team.Name),
		Type:              types.NotificationTeamAdded,
		RelatedEntityType: types.EntityTeam,
		RelatedEntityID:   ev.Team.ID,
	}}
}

func assignedNotification(t models.Task) models.Notification {
	return models.Notification{
		UserID:            *t.AssignedToID,
		Title:             "Task assigned",
		Message:           fmt.Sprintf("You have been assigned to task %q", t.Title),
		Type:              types.NotificationTaskAssigned,
		RelatedEntityType: types.EntityTask,
		RelatedEntityID:   t.ID,
	}
}

func (d *Dispatcher) activeTeamMembers(ctx context.Context, teamID uint) ([]uint, error) {
	var ids []uint
	err := d.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND is_active = ?", teamID, true).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func enteredCompleted(prev, next string) bool {
	return prev != types.StatusCompleted && next == types.StatusCompleted
}

// unique returns ids in first-seen order without duplicates, zeros, or
// any of the excluded ids.
func unique(ids []uint, exclude ...uint) []uint {
	seen := make(map[uint]bool, len(ids)+len(exclude))
	for _, id := range exclude {
		seen[id] = true
	}
	seen[0] = true

	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
