package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"account-market/internal/database"
	"account-market/internal/models"
	"account-market/internal/notify"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	cleanTables(db)
	return db
}

func cleanTables(db *gorm.DB) {
	for _, table := range []string{
		"audit_logs", "referrals", "ledger_entries", "gift_cards",
		"reviews", "orders", "ticket_notes", "messages", "tickets", "users",
	} {
		db.Exec("DELETE FROM " + table)
	}
}

func newSettlementService(db *gorm.DB) *SettlementService {
	ledger := NewLedgerService(db)
	referrals := NewReferralService(db, ledger)
	audit := NewAuditService(db)
	return NewSettlementService(db, ledger, referrals, notify.NewHub(), audit)
}

func createTestUser(t *testing.T, db *gorm.DB, username string, points int, tier models.Tier) *models.User {
	user := models.User{
		Username:     username,
		Email:        username + "@test.local",
		Password:     "x",
		Role:         models.RoleCustomer,
		Points:       points,
		Tier:         tier,
		Level:        1,
		ReferralCode: strings.ToUpper(username),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return &user
}

func createTestTicket(t *testing.T, db *gorm.DB, userID uint, status models.TicketStatus) *models.Ticket {
	ticket := models.Ticket{
		UserID:      userID,
		Type:        models.TicketTypeBuying,
		Description: "fortnite account",
		Priority:    "normal",
		Status:      status,
	}
	if err := db.Create(&ticket).Error; err != nil {
		t.Fatalf("failed to create ticket: %v", err)
	}
	return &ticket
}

func TestConfirmPaymentHappyPath(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlementService(db)

	user := createTestUser(t, db, "buyer1", 0, models.TierBronze)
	ticket := createTestTicket(t, db, user.ID, models.TicketPaymentPending)

	result, err := svc.ConfirmPayment(ticket.ID, decimal.NewFromInt(100), "crypto", 99)
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}

	if result.AlreadySettled {
		t.Error("first settlement should not report already settled")
	}
	if !strings.HasPrefix(result.OrderCode, "ORD-") {
		t.Errorf("expected ORD- prefix, got %s", result.OrderCode)
	}
	// $100 at bronze: 100 × 10 × 1.00 = 1000 points.
	if result.PointsEarned != 1000 {
		t.Errorf("expected 1000 points, got %d", result.PointsEarned)
	}
	if !result.NetAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected net 100, got %s", result.NetAmount)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.Points != 1000 {
		t.Errorf("expected user points 1000, got %d", fresh.Points)
	}
	// 1000 points crosses the silver threshold.
	if fresh.Tier != models.TierSilver {
		t.Errorf("expected silver tier, got %s", fresh.Tier)
	}

	var freshTicket models.Ticket
	db.First(&freshTicket, ticket.ID)
	if freshTicket.Status != models.TicketCompleted {
		t.Errorf("expected completed ticket, got %s", freshTicket.Status)
	}
	if freshTicket.OrderCode == nil || *freshTicket.OrderCode != result.OrderCode {
		t.Error("ticket order code was not stamped")
	}

	// The denormalized counter must match the ledger sum.
	total, err := NewLedgerService(db).CurrentPoints(user.ID)
	if err != nil {
		t.Fatalf("CurrentPoints failed: %v", err)
	}
	if total != fresh.Points {
		t.Errorf("ledger sum %d does not match user points %d", total, fresh.Points)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlementService(db)

	user := createTestUser(t, db, "buyer2", 0, models.TierBronze)
	ticket := createTestTicket(t, db, user.ID, models.TicketOpen)

	first, err := svc.ConfirmPayment(ticket.ID, decimal.NewFromInt(50), "", 99)
	if err != nil {
		t.Fatalf("first ConfirmPayment failed: %v", err)
	}
	second, err := svc.ConfirmPayment(ticket.ID, decimal.NewFromInt(50), "", 99)
	if err != nil {
		t.Fatalf("second ConfirmPayment failed: %v", err)
	}

	if !second.AlreadySettled {
		t.Error("second settlement should report already settled")
	}
	if second.OrderCode != first.OrderCode {
		t.Errorf("expected same order code, got %s vs %s", second.OrderCode, first.OrderCode)
	}
	if second.PointsEarned != 0 {
		t.Errorf("replay must not earn points, got %d", second.PointsEarned)
	}

	var orderCount int64
	db.Model(&models.Order{}).Where("ticket_id = ?", ticket.ID).Count(&orderCount)
	if orderCount != 1 {
		t.Errorf("expected exactly one order, got %d", orderCount)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.Points != first.PointsEarned {
		t.Errorf("replay changed the point balance: %d", fresh.Points)
	}

	// A replay with a different amount still returns the original order
	// unchanged and charges nothing new.
	third, err := svc.ConfirmPayment(ticket.ID, decimal.NewFromInt(999), "", 99)
	if err != nil {
		t.Fatalf("third ConfirmPayment failed: %v", err)
	}
	if !third.AlreadySettled {
		t.Error("replay with a new amount should report already settled")
	}
	if third.OrderCode != first.OrderCode {
		t.Errorf("replay minted a new order code: %s", third.OrderCode)
	}
	if !third.Order.Amount.Equal(first.Order.Amount) {
		t.Errorf("replay changed the order amount: %s", third.Order.Amount)
	}
	if third.PointsEarned != 0 {
		t.Errorf("replay with a new amount earned points: %d", third.PointsEarned)
	}
	db.First(&fresh, user.ID)
	if fresh.Points != first.PointsEarned {
		t.Errorf("replay with a new amount changed the balance: %d", fresh.Points)
	}
}

func TestConfirmPaymentAppliesStoreCredit(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlementService(db)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "buyer3", 0, models.TierBronze)
	ticket := createTestTicket(t, db, user.ID, models.TicketPaymentPending)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.AddStoreCredit(tx, user.ID, decimal.NewFromInt(30), nil)
	})
	if err != nil {
		t.Fatalf("failed to seed store credit: %v", err)
	}

	result, err := svc.ConfirmPayment(ticket.ID, decimal.NewFromInt(100), "crypto", 99)
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}

	if !result.AppliedCredit.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected $30 credit applied, got %s", result.AppliedCredit)
	}
	if !result.NetAmount.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected net $70, got %s", result.NetAmount)
	}
	// Points earn on the net amount, not the gross.
	if result.PointsEarned != 700 {
		t.Errorf("expected 700 points, got %d", result.PointsEarned)
	}
	if !result.Order.Amount.Equal(decimal.NewFromInt(70)) {
		t.Errorf("order should record the charged amount, got %s", result.Order.Amount)
	}

	remaining, err := ledger.AvailableStoreCredit(user.ID)
	if err != nil {
		t.Fatalf("AvailableStoreCredit failed: %v", err)
	}
	if !remaining.IsZero() {
		t.Errorf("expected credit fully consumed, got %s", remaining)
	}
}

func TestConfirmPaymentReferralOnGross(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlementService(db)
	ledger := NewLedgerService(db)

	referrer := createTestUser(t, db, "referrer1", 0, models.TierBronze)

	// Six prior successful referrals put the referrer in the 30% band.
	for i := 0; i < 6; i++ {
		prior := createTestUser(t, db, "prior"+string(rune('a'+i)), 0, models.TierBronze)
		if err := db.Create(&models.Referral{
			ReferrerID: referrer.ID,
			ReferredID: prior.ID,
			Commission: decimal.NewFromInt(1),
			Status:     "completed",
		}).Error; err != nil {
			t.Fatalf("failed to seed referral: %v", err)
		}
	}

	buyer := createTestUser(t, db, "buyer4", 0, models.TierBronze)
	db.Model(&models.User{}).Where("id = ?", buyer.ID).Update("referred_by_id", referrer.ID)

	// Buyer carries $50 store credit so gross and net diverge.
	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.AddStoreCredit(tx, buyer.ID, decimal.NewFromInt(50), nil)
	})
	if err != nil {
		t.Fatalf("failed to seed store credit: %v", err)
	}

	ticket := createTestTicket(t, db, buyer.ID, models.TicketPaymentPending)
	result, err := svc.ConfirmPayment(ticket.ID, decimal.NewFromInt(200), "crypto", 99)
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}

	// Points on net: 150 × 10 = 1500. Commission on gross: 200 × 0.30 = 60.
	if result.PointsEarned != 1500 {
		t.Errorf("expected 1500 points, got %d", result.PointsEarned)
	}

	var referral models.Referral
	if err := db.Where("referred_id = ?", buyer.ID).First(&referral).Error; err != nil {
		t.Fatalf("referral row not created: %v", err)
	}
	if !referral.Commission.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected $60 commission, got %s", referral.Commission)
	}

	var freshReferrer models.User
	db.First(&freshReferrer, referrer.ID)
	if freshReferrer.Points != ReferralBonusPoints {
		t.Errorf("expected referrer bonus %d, got %d", ReferralBonusPoints, freshReferrer.Points)
	}
}

func TestConfirmPaymentRejectsClosedTicket(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlementService(db)

	user := createTestUser(t, db, "buyer5", 0, models.TierBronze)
	ticket := createTestTicket(t, db, user.ID, models.TicketClosed)

	_, err := svc.ConfirmPayment(ticket.ID, decimal.NewFromInt(10), "crypto", 99)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	var orderCount int64
	db.Model(&models.Order{}).Where("ticket_id = ?", ticket.ID).Count(&orderCount)
	if orderCount != 0 {
		t.Error("rejected settlement must not create an order")
	}
}

func TestConfirmPaymentMissingTicket(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlementService(db)

	_, err := svc.ConfirmPayment(424242, decimal.NewFromInt(10), "crypto", 99)
	if !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestConfirmPaymentTierNeverDowngrades(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlementService(db)

	// A manually promoted gold user keeps gold even when the recomputed
	// tier would be lower.
	user := createTestUser(t, db, "buyer6", 0, models.TierGold)
	ticket := createTestTicket(t, db, user.ID, models.TicketOpen)

	result, err := svc.ConfirmPayment(ticket.ID, decimal.NewFromInt(10), "crypto", 99)
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}

	// $10 at gold: 10 × 10 × 1.25 = 125 points.
	if result.PointsEarned != 125 {
		t.Errorf("expected 125 points at gold multiplier, got %d", result.PointsEarned)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.Tier != models.TierGold {
		t.Errorf("tier downgraded to %s", fresh.Tier)
	}
}
