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
	"github.com/monocle-dev/crewboard/internal/metrics"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/notify"
	"github.com/monocle-dev/crewboard/internal/policy"
	"github.com/monocle-dev/crewboard/internal/types"
)

type ProvisionInput struct {
	Name        string
	Description string
	TeamID      *uint
	MemberIDs   []uint
	Status      string
	Priority    string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Provisioner creates a project together with its team and membership rows
// in one transaction.
type Provisioner struct {
	db       *gorm.DB
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewProvisioner(db *gorm.DB, notifier notify.Notifier, logger *slog.Logger, m *metrics.Metrics) *Provisioner {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Provisioner{db: db, notifier: notifier, logger: logger, metrics: m}
}

func (p *Provisioner) CreateProjectWithTeam(ctx context.Context, actor auth.Identity, in ProvisionInput) (*models.Project, error) {
	if err := policy.Authorize(actor, policy.CreateProject, policy.Resource{}); err != nil {
		p.metrics.Provisioned("forbidden")
		return nil, err
	}

	in, err := normalizeProvision(in)

	if err != nil {
		p.metrics.Provisioned("invalid")
		return nil, err
	}

	memberIDs := dedupe(in.MemberIDs, actor.UserID)
	creatorID := actor.UserID

	var project models.Project

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		if err := requireUsers(tx, memberIDs); err != nil {
			return err
		}

		var team models.Team

		if in.TeamID != nil {
			if err := tx.First(&team, *in.TeamID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Team not found")
				}
				return err
			}
		} else {
			team = models.Team{Name: in.Name + " Team", CreatedByID: &creatorID, IsActive: true}

			if err := tx.Create(&team).Error; err != nil {
				if apperr.IsUniqueViolation(err) {
					return apperr.Wrap(apperr.KindConflict, err, "A team with this name already exists")
				}
				return err
			}

			teamMembers := []models.TeamMember{{TeamID: team.ID, UserID: creatorID, Role: types.MemberRoleOwner, IsActive: true}}
			for _, id := range memberIDs {
				teamMembers = append(teamMembers, models.TeamMember{TeamID: team.ID, UserID: id, Role: types.MemberRoleMember, IsActive: true})
			}

			if err := tx.Create(&teamMembers).Error; err != nil {
				return err
			}
		}

		project = models.Project{
			Name:        in.Name,
			Description: in.Description,
			Status:      in.Status,
			Priority:    in.Priority,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			TeamID:      team.ID,
			CreatedByID: &creatorID,
		}

		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		projectMembers := []models.ProjectMember{{ProjectID: project.ID, UserID: creatorID, Role: types.MemberRoleOwner}}
		for _, id := range memberIDs {
			projectMembers = append(projectMembers, models.ProjectMember{ProjectID: project.ID, UserID: id, Role: types.MemberRoleMember})
		}

		if err := tx.Create(&projectMembers).Error; err != nil {
			return err
		}

		return recordActivity(tx, creatorID, ActionCreate, types.EntityProject, project.ID, map[string]interface{}{
			"teamId":      team.ID,
			"teamCreated": in.TeamID == nil,
			"memberIds":   memberIDs,
		})
	})

	if err != nil {
		p.metrics.Provisioned("failed")
		p.logger.Warn("project provisioning rolled back", "name", in.Name, "actor", creatorID, "error", err)
		return nil, err
	}

	created, err := p.Get(ctx, project.ID)

	if err != nil {
		return nil, err
	}

	p.metrics.Provisioned("created")
	p.logger.Info("project provisioned", "project_id", created.ID, "team_id", created.TeamID, "members", len(created.Members))

	p.notifier.Notify(ctx, notify.ProjectCreatedEvent(*created, creatorID))

	return created, nil
}

// Get loads a project with its team, active team members and project
// members.
func (p *Provisioner) Get(ctx context.Context, id uint) (*models.Project, error) {
	return loadProject(p.db.WithContext(ctx), id)
}

func loadProject(db *gorm.DB, id uint) (*models.Project, error) {
	var project models.Project

	err := db.
		Preload("Team").
		Preload("Team.Members", "is_active = ?", true).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&project, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Project not found")
		}
		return nil, err
	}

	return &project, nil
}

func normalizeProvision(in ProvisionInput) (ProvisionInput, error) {
	in.Name = strings.TrimSpace(in.Name)

	if in.Name == "" {
		return in, apperr.Validation("Project name is required")
	}
	if in.TeamID == nil && len(in.MemberIDs) == 0 {
		return in, apperr.Validation("At least one member is required when no team is given")
	}

	if in.Status == "" {
		in.Status = types.StatusTodo
	}
	if !types.IsValidStatus(in.Status) {
		return in, apperr.New(apperr.KindInvalidStatus, "Invalid status: "+in.Status)
	}

	if in.Priority == "" {
		in.Priority = types.PriorityMedium
	}
	if !types.IsValidPriority(in.Priority) {
		return in, apperr.Validation("Invalid priority: " + in.Priority)
	}

	if err := checkWindow(in.StartDate, in.EndDate); err != nil {
		return in, err
	}

	return in, nil
}

// requireUsers fails with NotFound unless every id names an existing user.
func requireUsers(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	var count int64

	if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return apperr.NotFound("One or more members do not exist")
	}
	return nil
}

// dedupe drops zeros, repeats and excluded ids while keeping order.
func dedupe(ids []uint, exclude ...uint) []uint {
	seen := map[uint]bool{0: true}
	for _, id := range exclude {
		seen[id] = true
	}

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
