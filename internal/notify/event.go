package notify

import (
	"context"

	"github.com/monocle-dev/crewboard/internal/models"
)

type EventType string

const (
	ProjectCreated  EventType = "project.created"
	ProjectUpdated  EventType = "project.updated"
	TaskCreated     EventType = "task.created"
	TaskUpdated     EventType = "task.updated"
	TeamMemberAdded EventType = "team.member_added"
)

// Event describes a committed mutation. Previous* fields hold the values
// before the write so the audience can be computed from the diff.
type Event struct {
	Type    EventType
	ActorID uint

	Project         *models.Project
	PreviousProject *models.Project
	Task            *models.Task
	PreviousTask    *models.Task
	Team            *models.Team
	UserID          uint
}

// Notifier receives events after the triggering transaction commits.
// Implementations must not report failures back to the caller.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

func ProjectCreatedEvent(project models.Project, actorID uint) Event {
	return Event{Type: ProjectCreated, ActorID: actorID, Project: &project}
}

func ProjectUpdatedEvent(prev, next models.Project, actorID uint) Event {
	return Event{Type: ProjectUpdated, ActorID: actorID, Project: &next, PreviousProject: &prev}
}

func TaskCreatedEvent(task models.Task, actorID uint) Event {
	return Event{Type: TaskCreated, ActorID: actorID, Task: &task}
}

func TaskUpdatedEvent(prev, next models.Task, actorID uint) Event {
	return Event{Type: TaskUpdated, ActorID: actorID, Task: &next, PreviousTask: &prev}
}

func TeamMemberAddedEvent(team models.Team, userID, actorID uint) Event {
	return Event{Type: TeamMemberAdded, ActorID: actorID, Team: &team, UserID: userID}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
