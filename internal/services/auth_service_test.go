package services

import (
	"errors"
	"testing"

	"account-market/internal/models"
)

func TestRegisterWelcomeBonus(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewAuthService(db, ledger, 1000)

	user, err := svc.Register("newbie1", "newbie1@test.local", "secret123", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if user.Points != 1000 {
		t.Errorf("expected 1000 welcome points, got %d", user.Points)
	}
	if user.Tier != models.TierBronze {
		t.Errorf("new user should be bronze, got %s", user.Tier)
	}
	if user.ReferralCode == "" {
		t.Error("referral code not assigned")
	}

	// The bonus lands through the ledger, not as a bare counter write.
	var entry models.LedgerEntry
	if err := db.Where("user_id = ? AND reason = ?", user.ID, models.ReasonWelcomeBonus).First(&entry).Error; err != nil {
		t.Fatalf("welcome bonus entry missing: %v", err)
	}
	if entry.Delta != 1000 {
		t.Errorf("expected delta 1000, got %d", entry.Delta)
	}

	total, _ := ledger.CurrentPoints(user.ID)
	if total != 1000 {
		t.Errorf("ledger sum %d, want 1000", total)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, NewLedgerService(db), 100)

	if _, err := svc.Register("dupe1", "dupe1@test.local", "secret123", ""); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	if _, err := svc.Register("dupe1", "other@test.local", "secret123", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate username: expected ErrUserExists, got %v", err)
	}
	if _, err := svc.Register("other1", "dupe1@test.local", "secret123", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate email: expected ErrUserExists, got %v", err)
	}
}

func TestRegisterWithReferralCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, NewLedgerService(db), 100)

	referrer := createTestUser(t, db, "sponsor1", 0, models.TierBronze)

	user, err := svc.Register("invited1", "invited1@test.local", "secret123", referrer.ReferralCode)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ReferredByID == nil || *user.ReferredByID != referrer.ID {
		t.Error("referrer not linked")
	}

	// An unknown code is ignored, not rejected.
	loner, err := svc.Register("invited2", "invited2@test.local", "secret123", "BOGUS99")
	if err != nil {
		t.Fatalf("Register with unknown code failed: %v", err)
	}
	if loner.ReferredByID != nil {
		t.Error("unknown code linked a referrer")
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, NewLedgerService(db), 100)

	registered, err := svc.Register("login1", "login1@test.local", "secret123", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := svc.Login("login1", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("wrong user returned: %d", user.ID)
	}

	if _, err := svc.Login("login1", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login("ghost1", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}
