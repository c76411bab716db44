package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/models"
)

// requireActor resolves the token's user inside tx. A deleted account is
// Unauthenticated; an inactive or unapproved one is Forbidden.
func requireActor(tx *gorm.DB, actor auth.Identity) error {
	var user models.User

	if err := tx.Select("id", "is_active", "is_approved").First(&user, actor.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Unauthenticated("Account no longer exists")
		}
		return err
	}

	if !user.IsActive || !user.IsApproved {
		return apperr.Forbidden("Account is inactive or awaiting approval")
	}
	return nil
}

// isActiveMember reports whether userID holds an active membership in teamID.
func isActiveMember(tx *gorm.DB, teamID, userID uint) (bool, error) {
	var count int64

	err := tx.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND is_active = ?", teamID, userID, true).
		Count(&count).Error

	return count > 0, err
}
