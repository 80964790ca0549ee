package services

import (
	"errors"
	"testing"

	"account-market/internal/models"
)

func TestAdjustPointsThroughLedger(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewUserService(db, ledger)

	user := createTestUser(t, db, "adjust1", 0, models.TierBronze)
	staff := createTestUser(t, db, "adjstaff1", 0, models.TierBronze)

	points, err := svc.AdjustPoints(user.ID, 250, "", nil, staff.ID)
	if err != nil {
		t.Fatalf("AdjustPoints failed: %v", err)
	}
	if points != 250 {
		t.Errorf("expected 250 points, got %d", points)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	total, _ := ledger.CurrentPoints(user.ID)
	if fresh.Points != 250 || total != 250 {
		t.Errorf("counter %d / ledger %d, want 250", fresh.Points, total)
	}

	var entry models.LedgerEntry
	if err := db.Where("user_id = ?", user.ID).First(&entry).Error; err != nil {
		t.Fatalf("adjustment entry missing: %v", err)
	}
	if entry.Reason != models.ReasonManualAdjustment {
		t.Errorf("expected manual_adjustment, got %s", entry.Reason)
	}
}

func TestAdjustPointsRecordsActor(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewUserService(db, ledger)

	user := createTestUser(t, db, "adjust2", 0, models.TierBronze)
	staff := createTestUser(t, db, "adjstaff2", 0, models.TierBronze)

	// Caller-supplied meta must still carry the acting staff ID.
	_, err := svc.AdjustPoints(user.ID, 100, "", models.JSONMap{"note": "goodwill"}, staff.ID)
	if err != nil {
		t.Fatalf("AdjustPoints failed: %v", err)
	}

	var entry models.LedgerEntry
	if err := db.Where("user_id = ?", user.ID).First(&entry).Error; err != nil {
		t.Fatalf("adjustment entry missing: %v", err)
	}
	by, ok := entry.Meta["by"].(float64)
	if !ok || uint(by) != staff.ID {
		t.Errorf("actor not recorded in meta: %+v", entry.Meta)
	}
	if note, _ := entry.Meta["note"].(string); note != "goodwill" {
		t.Errorf("caller meta lost: %+v", entry.Meta)
	}
}

func TestAdjustPointsMissingUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db, NewLedgerService(db))

	if _, err := svc.AdjustPoints(987654, 100, "", nil, 1); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
