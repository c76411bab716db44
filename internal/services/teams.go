package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/notify"
	"github.com/monocle-dev/crewboard/internal/policy"
	"github.com/monocle-dev/crewboard/internal/types"
)

type Teams struct {
	db       *gorm.DB
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewTeams(db *gorm.DB, notifier notify.Notifier, logger *slog.Logger) *Teams {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Teams{db: db, notifier: notifier, logger: logger}
}

// Create makes a standalone team with the actor as owner.
func (s *Teams) Create(ctx context.Context, actor auth.Identity, name string, memberIDs []uint) (*models.Team, error) {
	if err := policy.Authorize(actor, policy.CreateTeam, policy.Resource{}); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)

	if name == "" {
		return nil, apperr.Validation("Team name is required")
	}

	members := dedupe(memberIDs, actor.UserID)
	creatorID := actor.UserID

	var team models.Team

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		if err := requireUsers(tx, members); err != nil {
			return err
		}

		team = models.Team{Name: name, CreatedByID: &creatorID, IsActive: true}

		if err := tx.Create(&team).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Wrap(apperr.KindConflict, err, "A team with this name already exists")
			}
			return err
		}

		rows := []models.TeamMember{{TeamID: team.ID, UserID: creatorID, Role: types.MemberRoleOwner, IsActive: true}}
		for _, id := range members {
			rows = append(rows, models.TeamMember{TeamID: team.ID, UserID: id, Role: types.MemberRoleMember, IsActive: true})
		}

		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		return recordActivity(tx, creatorID, ActionCreate, types.EntityTeam, team.ID, map[string]interface{}{"memberIds": members})
	})

	if err != nil {
		return nil, err
	}

	for _, id := range members {
		s.notifier.Notify(ctx, notify.TeamMemberAddedEvent(team, id, creatorID))
	}

	return s.Get(ctx, team.ID)
}

func (s *Teams) Get(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team

	err := s.db.WithContext(ctx).
		Preload("Members", "is_active = ?", true).
		First(&team, id).Error

	if err != nil {
		return nil, notFound(err, "Team not found")
	}
	return &team, nil
}

// Delete removes the team. Memberships and owned projects go with it
// through the foreign key cascade.
func (s *Teams) Delete(ctx context.Context, actor auth.Identity, teamID uint) error {
	if err := policy.Authorize(actor, policy.DeleteTeam, policy.Resource{}); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		var team models.Team

		if err := tx.First(&team, teamID).Error; err != nil {
			return notFound(err, "Team not found")
		}

		if err := tx.Delete(&models.Team{}, team.ID).Error; err != nil {
			return err
		}

		return recordActivity(tx, actor.UserID, ActionDelete, types.EntityTeam, team.ID, map[string]interface{}{"name": team.Name})
	})
}

// AddMember adds userID to the team. A previously removed member is
// reactivated in place.
func (s *Teams) AddMember(ctx context.Context, actor auth.Identity, teamID, userID uint, role string) (*models.TeamMember, error) {
	if role == "" {
		role = types.MemberRoleMember
	}
	if role != types.MemberRoleMember && role != types.MemberRoleOwner {
		return nil, apperr.Validation("Invalid member role: " + role)
	}

	var team models.Team
	var member models.TeamMember
	added := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		if err := tx.First(&team, teamID).Error; err != nil {
			return notFound(err, "Team not found")
		}

		if err := policy.Authorize(actor, policy.ManageTeamMembers, policy.Resource{CreatedByID: team.CreatedByID}); err != nil {
			return err
		}

		if err := requireUsers(tx, []uint{userID}); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return apperr.NotFound("User not found")
			}
			return err
		}

		err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error

		switch {
		case err == nil:
			if member.IsActive && member.Role == role {
				return nil
			}
			added = !member.IsActive
			if err := tx.Model(&member).Updates(map[string]interface{}{"is_active": true, "role": role}).Error; err != nil {
				return err
			}
			member.IsActive = true
			member.Role = role
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = models.TeamMember{TeamID: teamID, UserID: userID, Role: role, IsActive: true}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			added = true
		default:
			return err
		}

		return recordActivity(tx, actor.UserID, ActionAddMember, types.EntityTeam, teamID, map[string]interface{}{
			"userId": userID,
			"role":   role,
		})
	})

	if err != nil {
		return nil, err
	}

	if added {
		s.notifier.Notify(ctx, notify.TeamMemberAddedEvent(team, userID, actor.UserID))
	}

	return &member, nil
}

// RemoveMember tombstones the membership row and unassigns the user from
// tasks in the team's projects.
func (s *Teams) RemoveMember(ctx context.Context, actor auth.Identity, teamID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		var team models.Team

		if err := tx.First(&team, teamID).Error; err != nil {
			return notFound(err, "Team not found")
		}

		if err := policy.Authorize(actor, policy.ManageTeamMembers, policy.Resource{CreatedByID: team.CreatedByID}); err != nil {
			return err
		}

		res := tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND user_id = ? AND is_active = ?", teamID, userID, true).
			Update("is_active", false)

		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Member not found")
		}

		teamGoals := tx.Model(&models.Goal{}).
			Select("goals.id").
			Joins("JOIN projects ON projects.id = goals.project_id").
			Where("projects.team_id = ?", teamID)

		unassigned := tx.Model(&models.Task{}).
			Where("assigned_to_id = ? AND goal_id IN (?)", userID, teamGoals).
			Update("assigned_to_id", nil)

		if unassigned.Error != nil {
			return unassigned.Error
		}

		return recordActivity(tx, actor.UserID, ActionRemoveMember, types.EntityTeam, teamID, map[string]interface{}{
			"userId":          userID,
			"unassignedTasks": unassigned.RowsAffected,
		})
	})
}
