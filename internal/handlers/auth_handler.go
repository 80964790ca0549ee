package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/models"
	"account-market/internal/services"
)

// AuthHandler handles registration, login and the current-user endpoint.
type AuthHandler struct {
	authService *services.AuthService
	audit       *services.AuditService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{authService: authService, audit: audit}
}

func userPayload(u *models.User) gin.H {
	return gin.H{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"role":          u.Role,
		"points":        u.Points,
		"tier":          u.Tier,
		"level":         u.Level,
		"referral_code": u.ReferralCode,
	}
}

// Register creates an account.
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username     string `json:"username" binding:"required,min=3,max=32"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required,min=6,max=128"`
		ReferralCode string `json:"referral_code" binding:"max=16"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := h.authService.Register(req.Username, req.Email, req.Password, req.ReferralCode)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username or email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"token":   token,
		"user":    userPayload(user),
	})
	h.audit.Record("user.register", &user.ID, models.JSONMap{
		"referralCode": req.ReferralCode,
		"points":       user.Points,
	})
}

// Login authenticates a user.
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    userPayload(user),
	})
	h.audit.Record("user.login", &user.ID, models.JSONMap{})
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, userPayload(user))
}
