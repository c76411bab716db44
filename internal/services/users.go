package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/policy"
	"github.com/monocle-dev/crewboard/internal/types"
)

const minPasswordLength = 8

type Users struct {
	db     *gorm.DB
	tokens *auth.JWT
	logger *slog.Logger
}

func NewUsers(db *gorm.DB, tokens *auth.JWT, logger *slog.Logger) *Users {
	return &Users{db: db, tokens: tokens, logger: logger}
}

// Register creates an unapproved employee account.
func (s *Users) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("Invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Validation("Password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)

	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         types.RoleEmployee,
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Wrap(apperr.KindConflict, err, "Email is already registered")
			}
			return err
		}
		return recordActivity(tx, user.ID, ActionRegister, types.EntityUser, user.ID, nil)
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return &user, nil
}

// Login checks credentials and returns a signed token. Unapproved or
// inactive accounts are refused with Forbidden.
func (s *Users) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User

	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperr.Unauthenticated("Invalid email or password")
		}
		return "", nil, err
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", nil, apperr.Unauthenticated("Invalid email or password")
	}

	if !user.IsActive {
		return "", nil, apperr.Forbidden("Account is disabled")
	}
	if !user.IsApproved {
		return "", nil, apperr.Forbidden("Account is awaiting approval")
	}

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})

	if err != nil {
		return "", nil, err
	}

	return token, &user, nil
}

func (s *Users) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User

	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "User not found")
	}
	return &user, nil
}

type ProfileUpdate struct {
	Name            *string
	Email           *string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile changes the caller's own name, email or password. A new
// password requires the current one.
func (s *Users) UpdateProfile(ctx context.Context, actor auth.Identity, in ProfileUpdate) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, actor.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthenticated("Account no longer exists")
			}
			return err
		}

		updates := map[string]interface{}{}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Validation("Name cannot be empty")
			}
			updates["name"] = name
		}

		if in.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*in.Email))
			if _, err := mail.ParseAddress(email); err != nil {
				return apperr.Validation("Invalid email address")
			}
			if email != user.Email {
				updates["email"] = email
			}
		}

		if in.NewPassword != "" {
			if in.CurrentPassword == "" {
				return apperr.Validation("Current password is required to change password")
			}
			if err := auth.ComparePassword(user.PasswordHash, in.CurrentPassword); err != nil {
				return apperr.Validation("Current password is incorrect")
			}
			if len(in.NewPassword) < minPasswordLength {
				return apperr.Validation("Password must be at least 8 characters")
			}

			hash, err := auth.HashPassword(in.NewPassword)

			if err != nil {
				return err
			}
			updates["password_hash"] = hash
		}

		if len(updates) == 0 {
			return apperr.Validation("No valid fields to update")
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Wrap(apperr.KindConflict, err, "Email is already registered")
			}
			return err
		}

		fields := make([]string, 0, len(updates))
		for k := range updates {
			fields = append(fields, k)
		}
		sort.Strings(fields)

		if err := recordActivity(tx, actor.UserID, ActionUpdate, types.EntityUser, user.ID, map[string]interface{}{"fields": fields}); err != nil {
			return err
		}

		return tx.First(&user, user.ID).Error
	})

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Users) Approve(ctx context.Context, actor auth.Identity, userID uint) (*models.User, error) {
	if err := policy.Authorize(actor, policy.ApproveUser, policy.Resource{}); err != nil {
		return nil, err
	}

	return s.update(ctx, actor, userID, ActionApprove, map[string]interface{}{"is_approved": true})
}

func (s *Users) ChangeRole(ctx context.Context, actor auth.Identity, userID uint, role string) (*models.User, error) {
	if err := policy.Authorize(actor, policy.ChangeUserRole, policy.Resource{}); err != nil {
		return nil, err
	}
	if !types.IsValidRole(role) {
		return nil, apperr.Validation("Invalid role: " + role)
	}

	return s.update(ctx, actor, userID, ActionChangeRole, map[string]interface{}{"role": role})
}

// Delete removes the user. Entities they created keep existing with a
// null creator.
func (s *Users) Delete(ctx context.Context, actor auth.Identity, userID uint) error {
	if err := policy.Authorize(actor, policy.DeleteUser, policy.Resource{}); err != nil {
		return err
	}
	if userID == actor.UserID {
		return apperr.Validation("Administrators cannot delete their own account")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		var user models.User

		if err := tx.First(&user, userID).Error; err != nil {
			return notFound(err, "User not found")
		}

		if err := tx.Delete(&models.User{}, user.ID).Error; err != nil {
			return err
		}

		return recordActivity(tx, actor.UserID, ActionDelete, types.EntityUser, user.ID, map[string]interface{}{"email": user.Email})
	})
}

func (s *Users) update(ctx context.Context, actor auth.Identity, userID uint, action string, updates map[string]interface{}) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActor(tx, actor); err != nil {
			return err
		}

		if err := tx.First(&user, userID).Error; err != nil {
			return notFound(err, "User not found")
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return err
		}

		if err := recordActivity(tx, actor.UserID, action, types.EntityUser, user.ID, updates); err != nil {
			return err
		}

		return tx.First(&user, user.ID).Error
	})

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Notifications lists the caller's notifications, newest first.
func (s *Users) Notifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	notifications := []models.Notification{}

	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	if err := q.Order("created_at DESC").Order("id DESC").Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead marks one of the caller's notifications as read. Other users'
// notifications are reported as missing.
func (s *Users) MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	var n models.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", notificationID, userID).First(&n).Error; err != nil {
			return notFound(err, "Notification not found")
		}
		if n.IsRead {
			return nil
		}

		now := time.Now().UTC()

		if err := tx.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
			return err
		}
		n.IsRead = true
		n.ReadAt = &now
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &n, nil
}
