package policy

import (
	"testing"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/types"
)

func ptr(v uint) *uint { return &v }

const actorID uint = 10

type relation string

const (
	relNone     relation = "unrelated"
	relCreator  relation = "creator"
	relProject  relation = "project-creator"
	relAssignee relation = "assignee"
)

func resourceFor(rel relation) Resource {
	other := ptr(99)
	res := Resource{CreatedByID: other, ProjectCreatorID: other, AssigneeID: other, IsTeamMember: true}
	switch rel {
	case relCreator:
		res.CreatedByID = ptr(actorID)
	case relProject:
		res.ProjectCreatorID = ptr(actorID)
	case relAssignee:
		res.AssigneeID = ptr(actorID)
	}
	return res
}

// allowed lists every (role, action, relation) combination the rules grant.
// Anything missing from it must be denied.
var allowed = map[string]map[Action][]relation{
	types.RoleAdmin: {
		CreateTeam:        {relNone, relCreator, relProject, relAssignee},
		DeleteTeam:        {relNone, relCreator, relProject, relAssignee},
		ManageTeamMembers: {relNone, relCreator, relProject, relAssignee},
		CreateProject:     {relNone, relCreator, relProject, relAssignee},
		UpdateProject:     {relNone, relCreator, relProject, relAssignee},
		DeleteProject:     {relNone, relCreator, relProject, relAssignee},
		ManageGoals:       {relNone, relCreator, relProject, relAssignee},
		CreateTask:        {relNone, relCreator, relProject, relAssignee},
		UpdateTaskStatus:  {relProject, relAssignee},
		ReassignTask:      {relNone, relCreator, relProject, relAssignee},
		ApproveUser:       {relNone, relCreator, relProject, relAssignee},
		ChangeUserRole:    {relNone, relCreator, relProject, relAssignee},
		DeleteUser:        {relNone, relCreator, relProject, relAssignee},
	},
	types.RoleTeamLead: {
		ManageTeamMembers: {relCreator},
		CreateProject:     {relNone, relCreator, relProject, relAssignee},
		UpdateProject:     {relCreator},
		ManageGoals:       {relProject},
		CreateTask:        {relNone, relCreator, relProject, relAssignee},
		UpdateTaskStatus:  {relProject, relAssignee},
		ReassignTask:      {relNone, relCreator, relProject, relAssignee},
	},
	types.RoleEmployee: {
		ManageTeamMembers: {relCreator},
		ManageGoals:       {relProject},
		CreateTask:        {relProject},
		UpdateTaskStatus:  {relProject, relAssignee},
	},
}

func expectAllowed(role string, action Action, rel relation) bool {
	for _, r := range allowed[role][action] {
		if r == rel {
			return true
		}
	}
	return false
}

func TestCanPerformCartesianProduct(t *testing.T) {
	roles := append([]string{}, types.Roles...)
	roles = append(roles, "", "superuser")
	relations := []relation{relNone, relCreator, relProject, relAssignee}

	for _, role := range roles {
		for _, action := range Actions {
			for _, rel := range relations {
				actor := auth.Identity{UserID: actorID, Role: role}
				got := CanPerform(actor, action, resourceFor(rel))
				want := expectAllowed(role, action, rel)
				if got != want {
					t.Errorf("CanPerform(%q, %s, %s) = %v, want %v", role, action, rel, got, want)
				}
			}
		}
	}
}

func TestUnknownActionDenied(t *testing.T) {
	admin := auth.Identity{UserID: 1, Role: types.RoleAdmin}
	if CanPerform(admin, Action("project:explode"), Resource{}) {
		t.Fatal("expected unknown action to be denied")
	}
}

func TestNilOwnershipNeverMatches(t *testing.T) {
	lead := auth.Identity{UserID: 5, Role: types.RoleTeamLead}
	if CanPerform(lead, UpdateProject, Resource{}) {
		t.Fatal("expected project with no creator to be denied for team lead")
	}

	anonymous := auth.Identity{UserID: 0, Role: types.RoleEmployee}
	if CanPerform(anonymous, UpdateTaskStatus, Resource{AssigneeID: ptr(0), IsTeamMember: true}) {
		t.Fatal("expected zero user id never to match ownership")
	}
}

func TestTaskStatusRequiresTeamMembership(t *testing.T) {
	for _, role := range types.Roles {
		actor := auth.Identity{UserID: actorID, Role: role}

		for _, rel := range []relation{relProject, relAssignee} {
			res := resourceFor(rel)
			res.IsTeamMember = false

			if CanPerform(actor, UpdateTaskStatus, res) {
				t.Errorf("expected %s %s outside the team to be denied", role, rel)
			}
		}
	}
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	employee := auth.Identity{UserID: 3, Role: types.RoleEmployee}
	err := Authorize(employee, CreateProject, Resource{})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	lead := auth.Identity{UserID: 3, Role: types.RoleTeamLead}
	if err := Authorize(lead, CreateProject, Resource{}); err != nil {
		t.Fatalf("expected team lead to create projects, got %v", err)
	}
}
