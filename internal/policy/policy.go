// Package policy holds the role and ownership rules for every mutation.
// Handlers and services ask CanPerform instead of checking roles inline.
package policy

import (
	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/types"
)

type Action string

const (
	CreateTeam        Action = "team:create"
	DeleteTeam        Action = "team:delete"
	ManageTeamMembers Action = "team:members"
	CreateProject     Action = "project:create"
	UpdateProject     Action = "project:update"
	DeleteProject     Action = "project:delete"
	ManageGoals       Action = "goal:manage"
	CreateTask        Action = "task:create"
	UpdateTaskStatus  Action = "task:update"
	ReassignTask      Action = "task:reassign"
	ApproveUser       Action = "user:approve"
	ChangeUserRole    Action = "user:role"
	DeleteUser        Action = "user:delete"
)

var Actions = []Action{
	CreateTeam, DeleteTeam, ManageTeamMembers,
	CreateProject, UpdateProject, DeleteProject,
	ManageGoals, CreateTask, UpdateTaskStatus, ReassignTask,
	ApproveUser, ChangeUserRole, DeleteUser,
}

// Resource carries the ownership facts a rule may need. Zero values mean
// "not applicable".
type Resource struct {
	CreatedByID      *uint // creator of the resource itself (project, team)
	ProjectCreatorID *uint // creator of the owning project
	AssigneeID       *uint
	IsTeamMember     bool // actor holds an active membership in the owning team
}

func CanPerform(actor auth.Identity, action Action, res Resource) bool {
	if !types.IsValidRole(actor.Role) {
		return false
	}

	switch action {
	case CreateTeam, DeleteTeam, DeleteProject, ApproveUser, ChangeUserRole, DeleteUser:
		return actor.Role == types.RoleAdmin

	case ManageTeamMembers:
		return actor.Role == types.RoleAdmin || isUser(res.CreatedByID, actor.UserID)

	case CreateProject:
		return actor.Role == types.RoleAdmin || actor.Role == types.RoleTeamLead

	case UpdateProject:
		if actor.Role == types.RoleAdmin {
			return true
		}
		return actor.Role == types.RoleTeamLead && isUser(res.CreatedByID, actor.UserID)

	case ManageGoals:
		return actor.Role == types.RoleAdmin || isUser(res.ProjectCreatorID, actor.UserID)

	case CreateTask:
		return actor.Role == types.RoleAdmin || actor.Role == types.RoleTeamLead ||
			isUser(res.ProjectCreatorID, actor.UserID)

	case UpdateTaskStatus:
		if !res.IsTeamMember {
			return false
		}
		return isUser(res.AssigneeID, actor.UserID) || isUser(res.ProjectCreatorID, actor.UserID)

	case ReassignTask:
		return actor.Role == types.RoleAdmin || actor.Role == types.RoleTeamLead
	}

	return false
}

// Authorize returns a Forbidden error when CanPerform denies the action.
func Authorize(actor auth.Identity, action Action, res Resource) error {
	if CanPerform(actor, action, res) {
		return nil
	}
	return apperr.Forbidden("You do not have permission to perform this action")
}

func isUser(id *uint, userID uint) bool {
	return id != nil && *id == userID && userID != 0
}
