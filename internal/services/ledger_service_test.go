package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"account-market/internal/models"
)

func TestLedgerRecordKeepsCounterInSync(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "ledger1", 0, models.TierBronze)

	deltas := []int{100, 250, -50, 1000, -300}
	for _, d := range deltas {
		if _, err := ledger.RecordDelta(user.ID, d, models.ReasonManualAdjustment, nil); err != nil {
			t.Fatalf("RecordDelta(%d) failed: %v", d, err)
		}
	}

	total, err := ledger.CurrentPoints(user.ID)
	if err != nil {
		t.Fatalf("CurrentPoints failed: %v", err)
	}
	var fresh models.User
	db.First(&fresh, user.ID)

	if total != 1000 {
		t.Errorf("expected ledger sum 1000, got %d", total)
	}
	if fresh.Points != total {
		t.Errorf("counter %d diverged from ledger %d", fresh.Points, total)
	}

	var entries int64
	db.Model(&models.LedgerEntry{}).Where("user_id = ?", user.ID).Count(&entries)
	if entries != int64(len(deltas)) {
		t.Errorf("expected %d entries, got %d", len(deltas), entries)
	}
}

func TestLedgerRecordMissingUser(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	_, err := ledger.RecordDelta(987654, 100, models.ReasonManualAdjustment, nil)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	// The rollback must take the orphaned entry with it.
	var entries int64
	db.Model(&models.LedgerEntry{}).Where("user_id = ?", 987654).Count(&entries)
	if entries != 0 {
		t.Errorf("orphaned ledger entry survived rollback: %d", entries)
	}
}

func TestStoreCreditFold(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "ledger2", 0, models.TierBronze)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.AddStoreCredit(tx, user.ID, decimal.NewFromInt(10), nil); err != nil {
			return err
		}
		if err := ledger.AddStoreCredit(tx, user.ID, decimal.NewFromFloat(2.50), nil); err != nil {
			return err
		}
		return ledger.UseStoreCredit(tx, user.ID, decimal.NewFromInt(4), nil)
	})
	if err != nil {
		t.Fatalf("store credit writes failed: %v", err)
	}

	credit, err := ledger.AvailableStoreCredit(user.ID)
	if err != nil {
		t.Fatalf("AvailableStoreCredit failed: %v", err)
	}
	if !credit.Equal(decimal.NewFromFloat(8.50)) {
		t.Errorf("expected $8.50, got %s", credit)
	}

	// Sub-ledger entries never touch the point counter.
	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.Points != 0 {
		t.Errorf("store credit writes changed points: %d", fresh.Points)
	}
}

func TestStoreCreditFloorsAtZero(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "ledger3", 0, models.TierBronze)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.AddStoreCredit(tx, user.ID, decimal.NewFromInt(5), nil); err != nil {
			return err
		}
		return ledger.UseStoreCredit(tx, user.ID, decimal.NewFromInt(9), nil)
	})
	if err != nil {
		t.Fatalf("store credit writes failed: %v", err)
	}

	credit, err := ledger.AvailableStoreCredit(user.ID)
	if err != nil {
		t.Fatalf("AvailableStoreCredit failed: %v", err)
	}
	if !credit.IsZero() {
		t.Errorf("expected zero, got %s", credit)
	}
}

func TestUserEntriesNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "ledger4", 0, models.TierBronze)
	for i := 0; i < 5; i++ {
		if _, err := ledger.RecordDelta(user.ID, 10, models.ReasonManualAdjustment, nil); err != nil {
			t.Fatalf("RecordDelta failed: %v", err)
		}
	}

	entries, err := ledger.UserEntries(user.ID, 3, 0)
	if err != nil {
		t.Fatalf("UserEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ID > entries[i-1].ID {
			t.Error("entries not in descending order")
		}
	}
}
