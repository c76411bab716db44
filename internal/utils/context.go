package utils

import (
	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (auth.Identity, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return auth.Identity{}, apperr.Unauthenticated("User not authenticated")
	}

	identity, ok := user.(auth.Identity)

	if !ok || identity.UserID == 0 {
		return auth.Identity{}, apperr.Unauthenticated("Invalid user in context")
	}

	return identity, nil
}

func GetCurrentUserID(ctx *gin.Context) (uint, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return 0, err
	}

	return user.UserID, nil
}
