// users.go implements account management and role assignment for the admin
// dashboard.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
)

// defaultRole is what role revocation drops an account back to.
const defaultRole = "picker"

// UserHandlers serves /api/users and /api/roles/assignments.
type UserHandlers struct {
	users      *repositories.UserRepository
	bcryptCost int
}

// NewUserHandlers creates the user handlers. bcryptCost of zero uses the
// library default.
func NewUserHandlers(users *repositories.UserRepository, bcryptCost int) *UserHandlers {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserHandlers{users: users, bcryptCost: bcryptCost}
}

// List returns all accounts.
func (h *UserHandlers) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		writeRepoError(c, err, "")
		return
	}

	views := make([]gin.H, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

// Get returns one account.
func (h *UserHandlers) Get(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeRepoError(c, err, "")
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": userView(user)})
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Password string `json:"password" binding:"required,min=8"`
}

// Create adds a staff account.
func (h *UserHandlers) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and a password of at least 8 characters are required"})
		return
	}
	if req.Role == "" {
		req.Role = defaultRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		slog.Error("password hashing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User could not be created"})
		return
	}

	user := &models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		writeRepoError(c, err, "A user with that email already exists")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": userView(user)})
}

type updateUserRequest struct {
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	IsActive *bool  `json:"isActive"`
}

// Update rewrites an account's profile fields.
func (h *UserHandlers) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user payload"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeRepoError(c, err, "")
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		writeRepoError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": userView(user)})
}

// Delete removes an account.
func (h *UserHandlers) Delete(c *gin.Context) {
	userID := c.Param("userId")
	if err := h.users.Delete(c.Request.Context(), userID); err != nil {
		writeRepoError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted", "userId": userID})
}

type roleAssignmentRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// GrantRole assigns the named role to a user.
func (h *UserHandlers) GrantRole(c *gin.Context) {
	var req roleAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and role are required"})
		return
	}

	if err := h.users.SetRole(c.Request.Context(), req.UserID, req.Role); err != nil {
		writeRepoError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role granted", "userId": req.UserID, "role": req.Role})
}

// RevokeRole drops the user back to the default picker role.
func (h *UserHandlers) RevokeRole(c *gin.Context) {
	var req roleAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and role are required"})
		return
	}

	if err := h.users.SetRole(c.Request.Context(), req.UserID, defaultRole); err != nil {
		writeRepoError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role revoked", "userId": req.UserID})
}
