package services

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/models"
)

const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionAddMember    = "add_member"
	ActionRemoveMember = "remove_member"
	ActionApprove      = "approve"
	ActionChangeRole   = "change_role"
	ActionRegister     = "register"
)

// recordActivity appends an audit row using tx so it commits or rolls back
// with the mutation it describes.
func recordActivity(tx *gorm.DB, actorID uint, action, resource string, resourceID uint, metadata map[string]interface{}) error {
	activity := models.UserActivity{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
	}
	if actorID != 0 {
		activity.UserID = &actorID
	}

	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)

		if err != nil {
			return err
		}

		activity.Metadata = datatypes.JSON(raw)
	}

	return tx.Create(&activity).Error
}
