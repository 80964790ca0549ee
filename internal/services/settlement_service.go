package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"account-market/internal/models"
	"account-market/internal/notify"
)

// errSettlementRaced signals that another settlement won the order insert
// while this transaction was in flight. The transaction rolls back and the
// caller re-reads the winner's order; the race is never surfaced as an error.
var errSettlementRaced = errors.New("settlement raced")

// SettlementResult is what a payment confirmation returns to the staff caller.
type SettlementResult struct {
	Ticket         *models.Ticket  `json:"ticket"`
	Order          *models.Order   `json:"order"`
	OrderCode      string          `json:"order_id"`
	PointsEarned   int             `json:"points_earned"`
	AppliedCredit  decimal.Decimal `json:"applied_credit"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	AlreadySettled bool            `json:"already_settled"`
}

// SettlementService orchestrates payment confirmation: order creation, store
// credit consumption, point crediting, tier recomputation and referral
// settlement, all inside one transaction. Atomicity rests on the backing
// store's transaction mechanism plus the unique index on orders.ticket_id;
// no in-process locks are taken.
type SettlementService struct {
	db        *gorm.DB
	ledger    *LedgerService
	referrals *ReferralService
	hub       *notify.Hub
	audit     *AuditService
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(db *gorm.DB, ledger *LedgerService, referrals *ReferralService, hub *notify.Hub, audit *AuditService) *SettlementService {
	return &SettlementService{
		db:        db,
		ledger:    ledger,
		referrals: referrals,
		hub:       hub,
		audit:     audit,
	}
}

// ConfirmPayment settles a ticket for the staff-confirmed amount. Calling it
// again for the same ticket returns the original order unchanged: the
// existing-order check up front catches double submissions, and the
// insert-or-fetch on orders.ticket_id catches the rare pair that races past
// that check. On any failure inside the transaction every write rolls back.
func (s *SettlementService) ConfirmPayment(ticketID uint, amount decimal.Decimal, paymentMethod string, actorID uint) (*SettlementResult, error) {
	if paymentMethod == "" {
		paymentMethod = "crypto"
	}

	code, err := GenerateOrderCode()
	if err != nil {
		return nil, err
	}

	var result SettlementResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.First(&ticket, ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}

		// Idempotency check: an order already settled this ticket.
		var existing models.Order
		err := tx.Where("ticket_id = ?", ticketID).First(&existing).Error
		if err == nil {
			if uerr := tx.Model(&ticket).Updates(map[string]interface{}{
				"status":     models.TicketCompleted,
				"order_code": existing.Code,
			}).Error; uerr != nil {
				return uerr
			}
			ticket.Status = models.TicketCompleted
			ticket.OrderCode = &existing.Code
			result = SettlementResult{
				Ticket:         &ticket,
				Order:          &existing,
				OrderCode:      existing.Code,
				PointsEarned:   0,
				AppliedCredit:  decimal.Zero,
				NetAmount:      existing.Amount,
				AlreadySettled: true,
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if !ticket.Status.CanTransition(models.TicketCompleted) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ticket.Status, models.TicketCompleted)
		}

		// Transition the ticket and stamp the fresh order code.
		if err := tx.Model(&ticket).Updates(map[string]interface{}{
			"status":     models.TicketCompleted,
			"order_code": code,
		}).Error; err != nil {
			return err
		}
		ticket.Status = models.TicketCompleted
		ticket.OrderCode = &code

		// Apply available store credit against the requested amount. Credit
		// is a discount: the order records what was actually charged.
		available, err := AvailableStoreCredit(tx, ticket.UserID)
		if err != nil {
			return err
		}
		applied := decimal.Min(available, amount)
		net := amount.Sub(applied)
		if net.IsNegative() {
			net = decimal.Zero
		}
		if applied.IsPositive() {
			if err := s.ledger.UseStoreCredit(tx, ticket.UserID, applied,
				models.JSONMap{"ticketId": ticketID, "orderId": code}); err != nil {
				return err
			}
		}

		// Insert-or-fetch on the ticket_id unique index. A conflict means a
		// concurrent settlement already created the order; abort this
		// transaction and let the caller return the winner's result.
		order := models.Order{
			TicketID:      ticketID,
			UserID:        ticket.UserID,
			Code:          code,
			Amount:        net,
			Status:        "completed",
			PaymentMethod: paymentMethod,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticket_id"}},
			DoNothing: true,
		}).Create(&order).Error; err != nil {
			return err
		}
		if order.ID == 0 {
			return errSettlementRaced
		}

		var user models.User
		if err := tx.First(&user, ticket.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// Points earn with the pre-settlement tier's multiplier.
		pointsEarned := OrderPoints(net, user.Tier)
		if _, err := s.ledger.Record(tx, user.ID, pointsEarned, models.ReasonOrderCompleted,
			models.JSONMap{
				"orderId": code,
				"amount":  amount.InexactFloat64(),
				"tier":    string(user.Tier),
			}); err != nil {
			return err
		}

		// Recompute the tier from the post-credit total. Settlement only
		// ever advances a tier, never lowers it.
		newTier := TierFor(user.Points + pointsEarned)
		if newTier.Rank() > user.Tier.Rank() {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
				Update("tier", newTier).Error; err != nil {
				return err
			}
		}

		// Referral settlement on the referred user's first completed order.
		// Commission is computed on the gross requested amount.
		if _, _, err := s.referrals.CreditFirstOrder(tx, &user, code, amount); err != nil {
			return err
		}

		result = SettlementResult{
			Ticket:        &ticket,
			Order:         &order,
			OrderCode:     code,
			PointsEarned:  pointsEarned,
			AppliedCredit: applied,
			NetAmount:     net,
		}
		return nil
	})

	if errors.Is(err, errSettlementRaced) {
		return s.settledResult(ticketID)
	}
	if err != nil {
		return nil, err
	}

	// Post-commit side effects are best-effort and must never make the
	// committed settlement look failed.
	s.notifySettled(&result)
	s.audit.Record("order.completed", &result.Ticket.UserID, models.JSONMap{
		"orderId": result.OrderCode,
		"amount":  amount.InexactFloat64(),
		"points":  result.PointsEarned,
		"by":      actorID,
	})

	return &result, nil
}

// settledResult re-reads the order that a concurrent settlement created and
// returns it as if this call had been the duplicate submission.
func (s *SettlementService) settledResult(ticketID uint) (*SettlementResult, error) {
	var order models.Order
	if err := s.db.Where("ticket_id = ?", ticketID).First(&order).Error; err != nil {
		return nil, err
	}
	var ticket models.Ticket
	if err := s.db.First(&ticket, ticketID).Error; err != nil {
		return nil, err
	}
	return &SettlementResult{
		Ticket:         &ticket,
		Order:          &order,
		OrderCode:      order.Code,
		PointsEarned:   0,
		AppliedCredit:  decimal.Zero,
		NetAmount:      order.Amount,
		AlreadySettled: true,
	}, nil
}

func (s *SettlementService) notifySettled(result *SettlementResult) {
	ticket := result.Ticket
	s.hub.PublishTicket(ticket.ID, notify.Event{
		Type:      "status",
		Status:    string(models.TicketCompleted),
		OrderCode: result.OrderCode,
	})
	s.hub.PublishUser(ticket.UserID, notify.Event{
		Type:  "order",
		Title: "Order completed",
		Body:  fmt.Sprintf("Order %s • $%s", result.OrderCode, result.Order.Amount.StringFixed(2)),
		URL:   fmt.Sprintf("/tickets/%d", ticket.ID),
	}.Now())
	if result.PointsEarned > 0 {
		s.hub.PublishUser(ticket.UserID, notify.Event{
			Type:  "points",
			Title: "Points added",
			Body:  fmt.Sprintf("+%d points", result.PointsEarned),
			URL:   "/profile",
		}.Now())
	}
	log.Printf("Ticket %d settled: order %s, %d points", ticket.ID, result.OrderCode, result.PointsEarned)
}
