// auth.go implements the session endpoints: password login, logout, and the
// current-user probe. Tokens are stateless JWTs, so logout performs no
// server-side work beyond being recorded by the audit middleware.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/warehouse-ops/warehouse-ops/internal/auth"
	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
	"github.com/warehouse-ops/warehouse-ops/internal/middleware"
)

// AuthHandlers serves /api/auth.
type AuthHandlers struct {
	users    *repositories.UserRepository
	tokenTTL time.Duration
}

// NewAuthHandlers creates the auth handlers. tokenTTL of zero falls back to
// the token package default.
func NewAuthHandlers(users *repositories.UserRepository, tokenTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{users: users, tokenTTL: tokenTTL}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a JWT. The response never
// distinguishes a wrong password from an unknown or deactivated account.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	if user == nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.tokenTTL)
	if err != nil {
		slog.Error("token generation failed", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userView(user),
	})
}

// Logout acknowledges the end of a session. The JWT stays valid until expiry;
// clients discard it.
func (h *AuthHandlers) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandlers) Me(c *gin.Context) {
	v, ok := c.Get(middleware.UserContextKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	user, ok := v.(*models.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userView(user)})
}

// userView is the wire shape of a user; the password hash never leaves the
// repository layer.
func userView(u *models.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"email":    u.Email,
		"fullName": u.FullName,
		"role":     u.Role,
		"isActive": u.IsActive,
	}
}
