package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/services"
)

// ReviewHandler exposes review creation, the public review strip and the
// staff moderation endpoints.
type ReviewHandler struct {
	reviews *services.ReviewService
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create submits a review for the caller's own completed order.
// POST /api/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req struct {
		OrderID uint   `json:"order_id" binding:"required"`
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	review, err := h.reviews.Create(userID, req.OrderID, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, services.ErrAlreadyReviewed):
			c.JSON(http.StatusConflict, gin.H{"error": "Order already reviewed"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Review submitted", "review": review})
}

// Public lists public reviews without authentication.
// GET /api/reviews/public
func (h *ReviewHandler) Public(c *gin.Context) {
	limit := queryInt(c, "limit", 20, 100)
	offset := queryInt(c, "offset", 0, 0)

	reviews, err := h.reviews.ListPublic(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// PublicSummary aggregates the public ratings.
// GET /api/reviews/public/summary
func (h *ReviewHandler) PublicSummary(c *gin.Context) {
	summary, err := h.reviews.Summary(true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// List returns all reviews for the staff view.
// GET /api/reviews
func (h *ReviewHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50, 200)
	offset := queryInt(c, "offset", 0, 0)

	reviews, err := h.reviews.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// SetVisibility toggles a review on or off the public strip.
// PUT /api/reviews/:id/visibility
func (h *ReviewHandler) SetVisibility(c *gin.Context) {
	reviewID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		IsPublic *bool `json:"is_public" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	review, err := h.reviews.SetVisibility(reviewID, *req.IsPublic)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review updated", "review": review})
}

// Summary aggregates all ratings including hidden ones, for staff.
// GET /api/reviews/summary
func (h *ReviewHandler) Summary(c *gin.Context) {
	summary, err := h.reviews.Summary(false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
