package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"account-market/internal/models"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		points int
		want   models.Tier
	}{
		{0, models.TierBronze},
		{999, models.TierBronze},
		{1000, models.TierSilver},
		{4999, models.TierSilver},
		{5000, models.TierGold},
		{250000, models.TierGold},
	}
	for _, c := range cases {
		if got := TierFor(c.points); got != c.want {
			t.Errorf("TierFor(%d) = %s, want %s", c.points, got, c.want)
		}
	}
}

func TestOrderPoints(t *testing.T) {
	cases := []struct {
		amount string
		tier   models.Tier
		want   int
	}{
		{"100", models.TierBronze, 1000},
		{"100", models.TierSilver, 1100},
		{"100", models.TierGold, 1250},
		// Fractional results truncate toward zero.
		{"10.55", models.TierSilver, 116},
		{"0.05", models.TierBronze, 0},
		{"0", models.TierGold, 0},
	}
	for _, c := range cases {
		amount, _ := decimal.NewFromString(c.amount)
		if got := OrderPoints(amount, c.tier); got != c.want {
			t.Errorf("OrderPoints(%s, %s) = %d, want %d", c.amount, c.tier, got, c.want)
		}
	}
}

func TestRedeemMinimum(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db, NewLedgerService(db))

	user := createTestUser(t, db, "redeemer1", 2000, models.TierSilver)

	_, _, err := svc.Redeem(user.ID, 499)
	if !errors.Is(err, ErrMinRedemption) {
		t.Errorf("expected ErrMinRedemption, got %v", err)
	}
}

func TestRedeemInsufficient(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db, NewLedgerService(db))

	user := createTestUser(t, db, "redeemer2", 400, models.TierBronze)

	_, _, err := svc.Redeem(user.ID, 600)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Errorf("expected ErrInsufficientPoints, got %v", err)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.Points != 400 {
		t.Errorf("failed redemption changed points: %d", fresh.Points)
	}
}

func TestRedeemSuccess(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewLoyaltyService(db, ledger)

	user := createTestUser(t, db, "redeemer3", 0, models.TierBronze)
	if _, err := ledger.RecordDelta(user.ID, 1200, models.ReasonManualAdjustment, nil); err != nil {
		t.Fatalf("failed to seed points: %v", err)
	}

	discount, remaining, err := svc.Redeem(user.ID, 500)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	// 500 points at 100 per dollar.
	if !discount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected $5 discount, got %s", discount)
	}
	if remaining != 700 {
		t.Errorf("expected 700 points remaining, got %d", remaining)
	}

	credit, err := svc.StoreCredit(user.ID)
	if err != nil {
		t.Fatalf("StoreCredit failed: %v", err)
	}
	if !credit.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected $5 store credit, got %s", credit)
	}

	// Ledger and counter stay in lockstep.
	total, _ := ledger.CurrentPoints(user.ID)
	var fresh models.User
	db.First(&fresh, user.ID)
	if total != fresh.Points || fresh.Points != 700 {
		t.Errorf("ledger %d / counter %d out of sync", total, fresh.Points)
	}
}

func TestOverview(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db, NewLedgerService(db))

	user := createTestUser(t, db, "overview1", 1200, models.TierSilver)

	overview, err := svc.Overview(user.ID)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if overview.Tier != models.TierSilver {
		t.Errorf("expected silver, got %s", overview.Tier)
	}
	if overview.NextTier != models.TierGold {
		t.Errorf("expected next tier gold, got %s", overview.NextTier)
	}
	if overview.PointsToNextTier != 3800 {
		t.Errorf("expected 3800 to gold, got %d", overview.PointsToNextTier)
	}
}
