package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/models"
	"account-market/internal/services"
)

// LoyaltyHandler exposes the loyalty overview, point redemption and the
// staff-facing ledger views.
type LoyaltyHandler struct {
	loyalty *services.LoyaltyService
	ledger  *services.LedgerService
	audit   *services.AuditService
}

// NewLoyaltyHandler creates a new LoyaltyHandler
func NewLoyaltyHandler(loyalty *services.LoyaltyService, ledger *services.LedgerService, audit *services.AuditService) *LoyaltyHandler {
	return &LoyaltyHandler{loyalty: loyalty, ledger: ledger, audit: audit}
}

// Overview returns the caller's loyalty summary.
// GET /api/loyalty
func (h *LoyaltyHandler) Overview(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	overview, err := h.loyalty.Overview(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch loyalty data"})
		return
	}

	credit, err := h.loyalty.StoreCredit(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch loyalty data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loyalty":      overview,
		"store_credit": credit,
	})
}

// Redeem converts the caller's points into store credit.
// POST /api/loyalty/redeem
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req struct {
		Points int `json:"points" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	discount, remaining, err := h.loyalty.Redeem(userID, req.Points)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMinRedemption):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Minimum redemption is 500 points"})
		case errors.Is(err, services.ErrInsufficientPoints):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient points"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Redemption failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Points redeemed",
		"discount":         discount,
		"remaining_points": remaining,
	})
	h.audit.Record("loyalty.redeem", &userID, models.JSONMap{
		"points":   req.Points,
		"discount": discount.InexactFloat64(),
	})
}

// Transactions lists the caller's own ledger entries.
// GET /api/loyalty/transactions
func (h *LoyaltyHandler) Transactions(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	limit := queryInt(c, "limit", 50, 200)
	offset := queryInt(c, "offset", 0, 0)

	entries, err := h.ledger.UserEntries(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

// AllTransactions lists ledger entries across all users for the CEO view.
// GET /api/loyalty/all-transactions
func (h *LoyaltyHandler) AllTransactions(c *gin.Context) {
	limit := queryInt(c, "limit", 100, 500)
	offset := queryInt(c, "offset", 0, 0)

	entries, err := h.ledger.AllEntries(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}
