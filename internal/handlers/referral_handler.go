package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/models"
	"account-market/internal/services"
)

// ReferralHandler exposes referral code validation, the referrer overview and
// the manual staff credit endpoint.
type ReferralHandler struct {
	referrals *services.ReferralService
	audit     *services.AuditService
	linkBase  string
}

// NewReferralHandler creates a new ReferralHandler
func NewReferralHandler(referrals *services.ReferralService, audit *services.AuditService, linkBase string) *ReferralHandler {
	return &ReferralHandler{referrals: referrals, audit: audit, linkBase: linkBase}
}

// Validate checks a referral code without authentication, for the signup form.
// GET /api/referral/validate?code=XXXX
func (h *ReferralHandler) Validate(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code"})
		return
	}

	valid, err := h.referrals.ValidateCode(code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Validation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

// Overview returns the caller's referral standing and referred users.
// GET /api/referral
func (h *ReferralHandler) Overview(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	overview, err := h.referrals.Overview(userID, h.linkBase)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch referral data"})
		return
	}

	c.JSON(http.StatusOK, overview)
}

// Credit is the manual staff path that settles a referral for an order that
// the automatic path missed.
// POST /api/referral/credit
func (h *ReferralHandler) Credit(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	var req struct {
		OrderID string `json:"order_id" binding:"required,max=32"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	status, commission, err := h.referrals.CreditByOrder(req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Credit failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"commission": commission,
	})
	if status == services.CreditStatusCredited {
		h.audit.Record("referral.credit", &actorID, models.JSONMap{
			"orderId":    req.OrderID,
			"commission": commission.InexactFloat64(),
		})
	}
}
