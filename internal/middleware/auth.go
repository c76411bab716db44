package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/types"
)

// AuthMiddleware verifies the bearer token and stores the resulting
// auth.Identity on the context. It never touches the database.
func AuthMiddleware(tokens *auth.JWT) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := bearerToken(ctx)

		if !ok {
			unauthenticated(ctx, "Authorization header format must be Bearer {token}")
			return
		}

		identity, err := tokens.Verify(tokenString)

		if err != nil {
			unauthenticated(ctx, "Invalid or expired token")
			return
		}

		ctx.Set(types.ContextUserKey, identity)
		ctx.Next()
	}
}

// bearerToken reads the Authorization header. Websocket upgrades may pass
// the token as a query parameter since browsers cannot set headers there.
func bearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")

	if authHeader == "" {
		if websocket.IsWebSocketUpgrade(ctx.Request) {
			if token := ctx.Query("token"); token != "" {
				return token, true
			}
		}
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)

	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}

	return strings.TrimSpace(parts[1]), true
}

func unauthenticated(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
		"kind":  apperr.KindUnauthenticated,
	})
}
