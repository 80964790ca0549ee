package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"account-market/internal/auth"
	"account-market/internal/models"
	"account-market/internal/services"
)

// GiftCardHandler exposes gift card generation, redemption and listing.
type GiftCardHandler struct {
	giftCards *services.GiftCardService
	audit     *services.AuditService
}

// NewGiftCardHandler creates a new GiftCardHandler
func NewGiftCardHandler(giftCards *services.GiftCardService, audit *services.AuditService) *GiftCardHandler {
	return &GiftCardHandler{giftCards: giftCards, audit: audit}
}

// Generate mints a gift card for the given dollar amount.
// POST /api/giftcards/generate
func (h *GiftCardHandler) Generate(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	var req struct {
		Amount float64 `json:"amount" binding:"required,gt=0,lte=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	card, err := h.giftCards.Generate(decimal.NewFromFloat(req.Amount), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate gift card"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Gift card generated", "gift_card": card})
	h.audit.Record("giftcard.generate", &actorID, models.JSONMap{
		"code":   card.Code,
		"amount": req.Amount,
	})
}

// Redeem redeems a gift card for the caller, converting its balance to points.
// POST /api/giftcards/redeem
func (h *GiftCardHandler) Redeem(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req struct {
		Code string `json:"code" binding:"required,max=32"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	amount, points, err := h.giftCards.Redeem(req.Code, userID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidOrAlreadyRedeemed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or already redeemed gift card"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Redemption failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Gift card redeemed",
		"amount":        amount,
		"points_earned": points,
	})
	h.audit.Record("giftcard.redeem", &userID, models.JSONMap{
		"code":   req.Code,
		"points": points,
	})
}

// List returns recent gift cards for the staff view.
// GET /api/giftcards
func (h *GiftCardHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 100, 500)

	cards, err := h.giftCards.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch gift cards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"gift_cards": cards})
}
