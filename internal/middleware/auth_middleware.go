package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/minicrm/backend/pkg/authtoken"
	"go.uber.org/zap"
)

// JWTAuthMiddleware verifies the bearer token and stores the caller's id
// under CtxUserID.
func JWTAuthMiddleware(signer *authtoken.Signer, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const bearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			abort(c, http.StatusUnauthorized, "Authorization header must start with Bearer ")
			return
		}

		claims, err := signer.Verify(strings.TrimSpace(authHeader[len(bearerSchema):]))
		if err != nil {
			log.Debug("jwt verification failed",
				RequestIDField(c),
				zap.Error(err))
			if errors.Is(err, jwt.ErrTokenExpired) {
				abort(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abort(c, http.StatusUnauthorized, "Invalid token")
			}
			return
		}

		userID := claims.UserID()
		if userID == "" {
			abort(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxUserRoles, claims.Role)
		c.Next()
	}
}
