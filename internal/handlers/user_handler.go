package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/models"
	"account-market/internal/services"
)

// UserHandler exposes the staff user-management surface and the CEO-only
// role, ban and password endpoints.
type UserHandler struct {
	users  *services.UserService
	ledger *services.LedgerService
	audit  *services.AuditService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService, ledger *services.LedgerService, audit *services.AuditService) *UserHandler {
	return &UserHandler{users: users, ledger: ledger, audit: audit}
}

// List returns all users.
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Get returns one user with their tickets, orders and referrals.
// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	user, tickets, orders, referrals, err := h.users.Detail(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      user,
		"tickets":   tickets,
		"orders":    orders,
		"referrals": referrals,
	})
}

// Ledger returns a user's ledger entries for the staff view.
// GET /api/users/:id/ledger
func (h *UserHandler) Ledger(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 100, 500)
	offset := queryInt(c, "offset", 0, 0)

	entries, err := h.ledger.UserEntries(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ledger"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ledger": entries})
}

// Update edits a user's profile fields on their behalf.
// PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := auth.GetUserID(c)

	var req struct {
		Username *string `json:"username" binding:"omitempty,min=3,max=32"`
		Email    *string `json:"email" binding:"omitempty,email"`
		Discord  *string `json:"discord" binding:"omitempty,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := h.users.UpdateProfile(userID, services.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
		Discord:  req.Discord,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, services.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already taken"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": user})
	h.audit.Record("admin.user.update", &actorID, models.JSONMap{"targetUserId": userID})
}

// UpdateRole sets a user's role. CEO only.
// PUT /api/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := auth.GetUserID(c)

	var req struct {
		Role string `json:"role" binding:"required,oneof=customer staff ceo banned"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	user, err := h.users.UpdateRole(userID, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "user": user})
	h.audit.Record("admin.user.update", &actorID, models.JSONMap{
		"targetUserId": userID,
		"role":         req.Role,
	})
}

// AdjustPoints applies a manual point adjustment through the ledger.
// POST /api/users/:id/points
func (h *UserHandler) AdjustPoints(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := auth.GetUserID(c)

	var req struct {
		Delta  int    `json:"delta" binding:"required"`
		Reason string `json:"reason" binding:"max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	points, err := h.users.AdjustPoints(userID, req.Delta, req.Reason, models.JSONMap{"by": actorID}, actorID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to adjust points"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Points adjusted", "points": points})
	h.audit.Record("admin.points.adjust", &actorID, models.JSONMap{
		"targetUserId": userID,
		"delta":        req.Delta,
	})
}

// SetPassword sets a user's password. CEO only.
// PUT /api/users/:id/password
func (h *UserHandler) SetPassword(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := auth.GetUserID(c)

	var req struct {
		Password string `json:"password" binding:"required,min=6,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := h.users.SetPassword(userID, req.Password); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	h.audit.Record("admin.user.password", &actorID, models.JSONMap{"targetUserId": userID})
}

// Ban swaps a user's role to banned. CEO only.
// POST /api/users/:id/ban
func (h *UserHandler) Ban(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := auth.GetUserID(c)

	user, err := h.users.Ban(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ban user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User banned", "user": user})
	h.audit.Record("admin.user.ban", &actorID, models.JSONMap{"targetUserId": userID})
}

// Unban restores a banned user to customer. CEO only.
// POST /api/users/:id/unban
func (h *UserHandler) Unban(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := auth.GetUserID(c)

	user, err := h.users.Unban(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unban user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User unbanned", "user": user})
	h.audit.Record("admin.user.unban", &actorID, models.JSONMap{"targetUserId": userID})
}

// Activity returns the staff activity feed from the audit trail.
// GET /api/activity
func (h *UserHandler) Activity(c *gin.Context) {
	limit := queryInt(c, "limit", 50, 200)
	offset := queryInt(c, "offset", 0, 0)

	var userFilter *uint
	if id := queryInt(c, "user_id", 0, 0); id > 0 {
		u := uint(id)
		userFilter = &u
	}

	items, err := h.audit.ActivityFeed(c.Query("type"), userFilter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": items})
}
