package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	userIDKey   = "identity.userID"
	userRoleKey = "identity.role"
)

// Identity reads the (userId, role) pair set by the upstream auth proxy.
// Requests without it pass through anonymous.
func Identity() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if id := strings.TrimSpace(ctx.GetHeader(HeaderUserID)); id != "" {
			ctx.Set(userIDKey, id)
			ctx.Set(userRoleKey, strings.ToUpper(strings.TrimSpace(ctx.GetHeader(HeaderUserRole))))
		}
		ctx.Next()
	}
}

// RequireRole answers 401 without an identity and 403 when the role is not
// one of roles. No roles means any identity is accepted.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := UserID(ctx); !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Authentication required", Code: "unauthenticated"})
			return
		}
		if len(roles) == 0 {
			ctx.Next()
			return
		}
		role := Role(ctx)
		for _, r := range roles {
			if r == role {
				ctx.Next()
				return
			}
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Error: "Insufficient role", Code: "forbidden"})
	}
}

func UserID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString(userIDKey)
	return id, id != ""
}

func Role(ctx *gin.Context) string {
	return ctx.GetString(userRoleKey)
}
