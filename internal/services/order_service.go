package services

import (
	"errors"

	"gorm.io/gorm"

	"account-market/internal/models"
)

// OrderService is the read side of orders; writes happen only in settlement.
type OrderService struct {
	db *gorm.DB
}

// NewOrderService creates a new OrderService
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// ListForUser returns a user's orders, newest first.
func (s *OrderService) ListForUser(userID uint, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	q := s.db.Where("user_id = ?", userID).Preload("Review").Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// List returns all orders for the staff view.
func (s *OrderService) List(limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("User").Preload("Review").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Receipt resolves an order by its human-readable code and loads the user and
// originating ticket for the receipt view.
func (s *OrderService) Receipt(code string) (*models.Order, *models.Ticket, error) {
	var order models.Order
	if err := s.db.Where("code = ?", code).Preload("User").Preload("Review").First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}

	var ticket models.Ticket
	if err := s.db.First(&ticket, order.TicketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &order, nil, nil
		}
		return nil, nil, err
	}
	return &order, &ticket, nil
}
