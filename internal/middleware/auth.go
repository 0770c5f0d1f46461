// auth.go validates JWT bearer tokens and populates the actor identity used
// by downstream middleware and handlers.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Recovery → RequestID → Metrics → Logger → CORS → SecurityHeaders → RateLimit → Auth → Audit → Handler
//
// Security headers run early so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB work.
// Auth populates user_id/user_email/user_role; the audit middleware reads those
// keys to attribute events, so it must run after auth on protected groups.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/warehouse-ops/warehouse-ops/internal/auth"
	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
)

// Context keys populated on successful authentication. The audit middleware
// and handlers read these; string keys match what c.Get expects.
const (
	UserContextKey      = "user"
	UserIDContextKey    = "user_id"
	UserEmailContextKey = "user_email"
	UserRoleContextKey  = "user_role"
)

// AuthMiddleware validates the JWT bearer token and loads the user record.
// The user is re-fetched on every request (rather than trusting the claims
// alone) so that deactivated accounts lose access immediately instead of at
// token expiry.
func AuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found or deactivated",
			})
			return
		}

		c.Set(UserContextKey, user)
		c.Set(UserIDContextKey, user.ID)
		c.Set(UserEmailContextKey, user.Email)
		c.Set(UserRoleContextKey, user.Role)

		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated user carries one of
// the given roles. Must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(UserRoleContextKey)
		for _, want := range roles {
			if role == want {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Insufficient permissions",
		})
	}
}
