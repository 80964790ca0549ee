package services

import (
	"errors"

	"gorm.io/gorm"

	"account-market/internal/models"
)

// ReviewService handles order reviews and their public visibility.
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService creates a new ReviewService
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// Create submits a review for the caller's own completed order, at most one
// per order.
func (s *ReviewService) Create(userID, orderID uint, rating int, comment string) (*models.Review, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.Status != "completed" {
		return nil, errors.New("only completed orders can be reviewed")
	}

	var existing int64
	if err := s.db.Model(&models.Review{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyReviewed
	}

	review := models.Review{
		UserID:   userID,
		OrderID:  orderID,
		Rating:   rating,
		Comment:  comment,
		IsPublic: true,
	}
	if err := s.db.Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return &review, nil
}

// ListPublic returns public reviews with reviewer and order preloaded.
func (s *ReviewService) ListPublic(limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.Where("is_public = ?", true).
		Preload("User").Preload("Order").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// List returns all reviews for the staff view.
func (s *ReviewService) List(limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.Preload("User").Preload("Order").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// SetVisibility toggles whether a review shows on the public strip.
func (s *ReviewService) SetVisibility(reviewID uint, isPublic bool) (*models.Review, error) {
	var review models.Review
	if err := s.db.First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("review not found")
		}
		return nil, err
	}
	if err := s.db.Model(&review).Update("is_public", isPublic).Error; err != nil {
		return nil, err
	}
	review.IsPublic = isPublic
	return &review, nil
}

// ReviewSummary aggregates ratings.
type ReviewSummary struct {
	AverageRating float64     `json:"average_rating"`
	TotalReviews  int64       `json:"total_reviews"`
	Breakdown     map[int]int `json:"breakdown"`
}

// Summary aggregates ratings; publicOnly restricts to public reviews.
func (s *ReviewService) Summary(publicOnly bool) (*ReviewSummary, error) {
	q := s.db.Model(&models.Review{})
	if publicOnly {
		q = q.Where("is_public = ?", true)
	}

	type ratingCount struct {
		Rating int
		Count  int
	}
	var counts []ratingCount
	if err := q.Select("rating, COUNT(*) as count").Group("rating").Scan(&counts).Error; err != nil {
		return nil, err
	}

	summary := &ReviewSummary{Breakdown: map[int]int{}}
	var sum int64
	for _, c := range counts {
		summary.Breakdown[c.Rating] = c.Count
		summary.TotalReviews += int64(c.Count)
		sum += int64(c.Rating * c.Count)
	}
	if summary.TotalReviews > 0 {
		summary.AverageRating = float64(sum) / float64(summary.TotalReviews)
	}
	return summary, nil
}
