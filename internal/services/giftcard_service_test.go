package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"account-market/internal/models"
)

func TestGiftCardGenerate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewGiftCardService(db, NewLedgerService(db))

	staff := createTestUser(t, db, "gcstaff1", 0, models.TierBronze)

	card, err := svc.Generate(decimal.NewFromInt(25), staff.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.HasPrefix(card.Code, "GC-") {
		t.Errorf("expected GC- prefix, got %s", card.Code)
	}
	if !card.IsActive {
		t.Error("new card should be active")
	}
	if !card.Balance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected $25 balance, got %s", card.Balance)
	}

	// Codes stay unique across a batch.
	seen := map[string]bool{card.Code: true}
	for i := 0; i < 20; i++ {
		c, err := svc.Generate(decimal.NewFromInt(5), staff.ID)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if seen[c.Code] {
			t.Fatalf("duplicate code generated: %s", c.Code)
		}
		seen[c.Code] = true
	}
}

func TestGiftCardRedeem(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewGiftCardService(db, ledger)

	staff := createTestUser(t, db, "gcstaff2", 0, models.TierBronze)
	redeemer := createTestUser(t, db, "gcredeemer1", 0, models.TierBronze)

	card, err := svc.Generate(decimal.NewFromFloat(25.50), staff.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	amount, points, err := svc.Redeem(card.Code, redeemer.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if !amount.Equal(decimal.NewFromFloat(25.50)) {
		t.Errorf("expected $25.50, got %s", amount)
	}
	// floor(25.50 × 10) = 255 points.
	if points != 255 {
		t.Errorf("expected 255 points, got %d", points)
	}

	var fresh models.User
	db.First(&fresh, redeemer.ID)
	if fresh.Points != 255 {
		t.Errorf("expected redeemer points 255, got %d", fresh.Points)
	}

	var freshCard models.GiftCard
	db.Where("code = ?", card.Code).First(&freshCard)
	if freshCard.IsActive {
		t.Error("redeemed card still active")
	}
	if freshCard.RedeemedByID == nil || *freshCard.RedeemedByID != redeemer.ID {
		t.Error("redeemer not recorded on card")
	}
	if freshCard.RedeemedAt == nil {
		t.Error("redemption time not recorded")
	}
}

func TestGiftCardRedeemOnlyOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := NewGiftCardService(db, NewLedgerService(db))

	staff := createTestUser(t, db, "gcstaff3", 0, models.TierBronze)
	first := createTestUser(t, db, "gcredeemer2", 0, models.TierBronze)
	second := createTestUser(t, db, "gcredeemer3", 0, models.TierBronze)

	card, err := svc.Generate(decimal.NewFromInt(10), staff.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, _, err := svc.Redeem(card.Code, first.ID); err != nil {
		t.Fatalf("first Redeem failed: %v", err)
	}
	_, _, err = svc.Redeem(card.Code, second.ID)
	if !errors.Is(err, ErrInvalidOrAlreadyRedeemed) {
		t.Errorf("expected ErrInvalidOrAlreadyRedeemed, got %v", err)
	}

	var fresh models.User
	db.First(&fresh, second.ID)
	if fresh.Points != 0 {
		t.Errorf("losing redeemer earned points: %d", fresh.Points)
	}
}

func TestGiftCardRedeemUnknownCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewGiftCardService(db, NewLedgerService(db))

	redeemer := createTestUser(t, db, "gcredeemer4", 0, models.TierBronze)

	_, _, err := svc.Redeem("GC-DOESNOTEX", redeemer.ID)
	if !errors.Is(err, ErrInvalidOrAlreadyRedeemed) {
		t.Errorf("expected ErrInvalidOrAlreadyRedeemed, got %v", err)
	}
}

func TestGiftCardRedeemNormalizesCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewGiftCardService(db, NewLedgerService(db))

	staff := createTestUser(t, db, "gcstaff4", 0, models.TierBronze)
	redeemer := createTestUser(t, db, "gcredeemer5", 0, models.TierBronze)

	card, err := svc.Generate(decimal.NewFromInt(5), staff.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, _, err := svc.Redeem("  "+strings.ToLower(card.Code)+"  ", redeemer.ID); err != nil {
		t.Errorf("lowercased padded code should redeem, got %v", err)
	}
}
