package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/services"
)

// ProfileHandler exposes the customer's own profile: viewing, editing and
// changing the password.
type ProfileHandler struct {
	users       *services.UserService
	authService *services.AuthService
	loyalty     *services.LoyaltyService
	orders      *services.OrderService
	ledger      *services.LedgerService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(users *services.UserService, authService *services.AuthService, loyalty *services.LoyaltyService, orders *services.OrderService, ledger *services.LedgerService) *ProfileHandler {
	return &ProfileHandler{users: users, authService: authService, loyalty: loyalty, orders: orders, ledger: ledger}
}

// Get returns the caller's profile with loyalty standing, store credit and
// recent history.
// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	overview, err := h.loyalty.Overview(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	credit, err := h.loyalty.StoreCredit(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	recentOrders, err := h.orders.ListForUser(userID, 10, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	recentEntries, err := h.ledger.UserEntries(userID, 10, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":                userPayload(user),
		"discord":             user.Discord,
		"loyalty":             overview,
		"store_credit":        credit,
		"recent_orders":       recentOrders,
		"recent_transactions": recentEntries,
	})
}

// Update edits the caller's own profile fields.
// PUT /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

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
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": userPayload(user)})
}

// ChangePassword verifies the current password and sets a new one.
// PUT /api/profile/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=6,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := h.users.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}
