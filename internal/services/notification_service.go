package services

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"account-market/internal/models"
	"account-market/internal/notify"
)

// NotificationService derives a user's notification feed from persisted
// state: staff messages on their tickets, completed orders and point grants.
// The hub only carries live pushes; history always comes from here, so a
// client that was offline reconstructs the same feed on reconnect.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Feed returns the user's most recent notifications, newest first.
func (s *NotificationService) Feed(userID uint, limit int) ([]notify.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var events []notify.Event

	var messages []models.Message
	err := s.db.Joins("JOIN tickets ON tickets.id = messages.ticket_id").
		Where("tickets.user_id = ? AND messages.sender = ?", userID, models.SenderStaff).
		Order("messages.timestamp DESC").Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		preview := m.Body
		if len(preview) > 120 {
			preview = preview[:120]
		}
		events = append(events, notify.Event{
			Type:      "message",
			ID:        m.ID,
			Title:     "New message from staff",
			Body:      preview,
			URL:       fmt.Sprintf("/tickets/%d", m.TicketID),
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}

	var orders []models.Order
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	for _, o := range orders {
		events = append(events, notify.Event{
			Type:      "order",
			ID:        o.ID,
			OrderCode: o.Code,
			Title:     "Order completed",
			Body:      fmt.Sprintf("Order %s • $%s", o.Code, o.Amount.StringFixed(2)),
			URL:       fmt.Sprintf("/tickets/%d", o.TicketID),
			Timestamp: o.CreatedAt.Format(time.RFC3339),
		})
	}

	var entries []models.LedgerEntry
	err = s.db.Where("user_id = ? AND delta > 0", userID).
		Order("created_at DESC").Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		events = append(events, notify.Event{
			Type:      "points",
			ID:        e.ID,
			Title:     "Points added",
			Body:      fmt.Sprintf("+%d points (%s)", e.Delta, e.Reason),
			URL:       "/profile",
			Timestamp: e.CreatedAt.Format(time.RFC3339),
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
