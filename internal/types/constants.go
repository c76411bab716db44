package types

const (
	ContextUserKey      = "user"
	ContextRequestIDKey = "request_id"
)

// Roles a User may hold.
const (
	RoleAdmin    = "admin"
	RoleTeamLead = "teamLead"
	RoleEmployee = "employee"
)

// Roles a TeamMember or ProjectMember row may hold.
const (
	MemberRoleOwner  = "owner"
	MemberRoleMember = "member"
)

// Status vocabulary shared by projects, goals and tasks.
const (
	StatusTodo       = "todo"
	StatusInProgress = "inProgress"
	StatusTesting    = "testing"
	StatusCompleted  = "completed"
	StatusArchived   = "archived"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Notification types.
const (
	NotificationProjectCreated = "project_created"
	NotificationTaskAssigned   = "task_assigned"
	NotificationTaskCompleted  = "task_completed"
	NotificationProjectUpdated = "project_updated"
	NotificationTeamAdded      = "team_added"
	NotificationChatUnread     = "chat_unread"
)

// Entity names used for notifications and activity rows.
const (
	EntityTeam    = "team"
	EntityProject = "project"
	EntityGoal    = "goal"
	EntityTask    = "task"
	EntityUser    = "user"
)

var (
	Statuses   = []string{StatusTodo, StatusInProgress, StatusTesting, StatusCompleted, StatusArchived}
	Roles      = []string{RoleAdmin, RoleTeamLead, RoleEmployee}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

func IsValidStatus(status string) bool {
	return contains(Statuses, status)
}

func IsValidRole(role string) bool {
	return contains(Roles, role)
}

func IsValidPriority(priority string) bool {
	return contains(Priorities, priority)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
