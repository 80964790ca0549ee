package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"account-market/internal/models"
)

// AuditService writes the operational audit trail. Record is fire-and-forget:
// an audit failure is logged, never returned, so it can never fail the
// operation it describes.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditService
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends an audit entry.
func (s *AuditService) Record(eventType string, userID *uint, meta models.JSONMap) {
	if meta == nil {
		meta = models.JSONMap{}
	}
	entry := models.AuditLog{
		Type:   eventType,
		UserID: userID,
		Meta:   meta,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("audit: failed to record %s: %v", eventType, err)
	}
}

// ActivityItem is a rendered audit row for the staff activity feed.
type ActivityItem struct {
	ID        uint         `json:"id"`
	Type      string       `json:"type"`
	CreatedAt string       `json:"created_at"`
	Actor     *ActorRef    `json:"actor"`
	Message   string       `json:"message"`
}

// ActorRef identifies the acting user on an activity item.
type ActorRef struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ActivityFeed lists audit entries, newest first, with human-readable
// summaries resolved against the users they mention.
func (s *AuditService) ActivityFeed(eventType string, userID *uint, limit, offset int) ([]ActivityItem, error) {
	q := s.db.Model(&models.AuditLog{}).Order("created_at DESC").Limit(limit).Offset(offset)
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var logs []models.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}

	users, err := s.resolveUsers(logs)
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(logs))
	for _, l := range logs {
		var actor *models.User
		if l.UserID != nil {
			actor = users[*l.UserID]
		}
		item := ActivityItem{
			ID:        l.ID,
			Type:      l.Type,
			CreatedAt: l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Message:   renderActivity(l, actor, users),
		}
		if actor != nil {
			item.Actor = &ActorRef{ID: actor.ID, Username: actor.Username, Role: actor.Role}
		}
		items = append(items, item)
	}
	return items, nil
}

// resolveUsers collects every user ID the log rows mention, directly or via
// meta, and loads them in one query.
func (s *AuditService) resolveUsers(logs []models.AuditLog) (map[uint]*models.User, error) {
	ids := make(map[uint]struct{})
	for _, l := range logs {
		if l.UserID != nil {
			ids[*l.UserID] = struct{}{}
		}
		for _, key := range []string{"targetUserId", "referrerId", "referredId", "userId"} {
			if id, ok := metaUserID(l.Meta, key); ok {
				ids[id] = struct{}{}
			}
		}
	}
	if len(ids) == 0 {
		return map[uint]*models.User{}, nil
	}

	list := make([]uint, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	var users []models.User
	if err := s.db.Where("id IN ?", list).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	return byID, nil
}

func metaUserID(meta models.JSONMap, key string) (uint, bool) {
	raw, ok := meta[key]
	if !ok {
		return 0, false
	}
	if f, ok := raw.(float64); ok && f > 0 {
		return uint(f), true
	}
	return 0, false
}

func renderActivity(l models.AuditLog, actor *models.User, users map[uint]*models.User) string {
	name := func(u *models.User) string {
		if u == nil {
			return ""
		}
		return u.Username
	}
	metaUser := func(key string) *models.User {
		if id, ok := metaUserID(l.Meta, key); ok {
			return users[id]
		}
		return nil
	}
	num := func(key string) float64 {
		if f, ok := l.Meta[key].(float64); ok {
			return f
		}
		return 0
	}
	str := func(key string) string {
		if s, ok := l.Meta[key].(string); ok {
			return s
		}
		return ""
	}

	switch l.Type {
	case "user.register":
		return fmt.Sprintf("New user: %s", name(actor))
	case "user.login":
		return fmt.Sprintf("Login: %s", name(actor))
	case "ticket.create":
		return fmt.Sprintf("Ticket created by %s • %s", name(actor), str("type"))
	case "order.completed":
		return fmt.Sprintf("Order %s • $%.2f • user %s", str("orderId"), num("amount"), name(actor))
	case "admin.user.update":
		return fmt.Sprintf("Staff %s updated %s", name(actor), name(metaUser("targetUserId")))
	case "admin.user.password":
		return fmt.Sprintf("CEO %s set password for %s", name(actor), name(metaUser("targetUserId")))
	case "admin.user.ban":
		return fmt.Sprintf("CEO %s banned %s", name(actor), name(metaUser("targetUserId")))
	case "admin.user.unban":
		return fmt.Sprintf("CEO %s unbanned %s", name(actor), name(metaUser("targetUserId")))
	case "admin.points.adjust":
		return fmt.Sprintf("Staff %s adjusted %s by %+.0f points", name(actor), name(metaUser("targetUserId")), num("delta"))
	case "loyalty.redeem":
		return fmt.Sprintf("Redeem by %s • %.0f pts = $%.2f", name(actor), num("points"), num("discount"))
	case "referral.credit":
		return fmt.Sprintf("Referral credited • %s ← %s • $%.2f", name(metaUser("referrerId")), name(metaUser("referredId")), num("commission"))
	case "giftcard.generate":
		return fmt.Sprintf("Gift card %s • $%.2f by %s", str("code"), num("amount"), name(actor))
	case "giftcard.redeem":
		return fmt.Sprintf("Redeemed card %s by %s • +%.0f pts", str("code"), name(actor), num("points"))
	default:
		return l.Type
	}
}
