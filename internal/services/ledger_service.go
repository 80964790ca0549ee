package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"account-market/internal/models"
)

// LedgerService owns the append-only rewards ledger and the denormalized
// users.points counter. Every point-affecting write in the system goes
// through Record so the entry and the counter always commit together.
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Record appends a ledger entry and increments the user's points by the same
// delta inside the caller's transaction. Store-credit entries carry delta 0
// and leave the counter untouched.
func (s *LedgerService) Record(tx *gorm.DB, userID uint, delta int, reason string, meta models.JSONMap) (*models.LedgerEntry, error) {
	entry := models.LedgerEntry{
		UserID: userID,
		Delta:  delta,
		Reason: reason,
		Meta:   meta,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	if delta != 0 {
		res := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("points", gorm.Expr("points + ?", delta))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}

	return &entry, nil
}

// RecordDelta is Record wrapped in its own transaction, for callers with no
// surrounding unit of work.
func (s *LedgerService) RecordDelta(userID uint, delta int, reason string, meta models.JSONMap) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.Record(tx, userID, delta, reason, meta)
		return err
	})
	return entry, err
}

// AddStoreCredit appends a store_credit_add sub-entry for the dollar amount.
func (s *LedgerService) AddStoreCredit(tx *gorm.DB, userID uint, dollars decimal.Decimal, meta models.JSONMap) error {
	if meta == nil {
		meta = models.JSONMap{}
	}
	meta["dollars"] = dollars.InexactFloat64()
	_, err := s.Record(tx, userID, 0, models.ReasonStoreCreditAdd, meta)
	return err
}

// UseStoreCredit appends a store_credit_use sub-entry for the dollar amount.
func (s *LedgerService) UseStoreCredit(tx *gorm.DB, userID uint, dollars decimal.Decimal, meta models.JSONMap) error {
	if meta == nil {
		meta = models.JSONMap{}
	}
	meta["dollars"] = dollars.InexactFloat64()
	_, err := s.Record(tx, userID, 0, models.ReasonStoreCreditUse, meta)
	return err
}

// CurrentPoints sums the user's ledger deltas. It must always equal
// users.points for the same user.
func (s *LedgerService) CurrentPoints(userID uint) (int, error) {
	var total int64
	err := s.db.Model(&models.LedgerEntry{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(delta), 0)").Scan(&total).Error
	return int(total), err
}

// AvailableStoreCredit reads the user's store-credit balance via s.db.
func (s *LedgerService) AvailableStoreCredit(userID uint) (decimal.Decimal, error) {
	return AvailableStoreCredit(s.db, userID)
}

// AvailableStoreCredit folds the store-credit sub-ledger for a user:
// sum(add) - sum(use), floored at zero. Callers inside a transaction pass
// their tx so the settlement read sees its own writes.
func AvailableStoreCredit(db *gorm.DB, userID uint) (decimal.Decimal, error) {
	var entries []models.LedgerEntry
	err := db.Where("user_id = ? AND reason IN ?", userID,
		[]string{models.ReasonStoreCreditAdd, models.ReasonStoreCreditUse}).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		return decimal.Zero, err
	}

	credit := decimal.Zero
	for _, e := range entries {
		dollars := metaDollars(e.Meta)
		if e.Reason == models.ReasonStoreCreditAdd {
			credit = credit.Add(dollars)
		} else {
			credit = credit.Sub(dollars)
		}
	}
	if credit.IsNegative() {
		credit = decimal.Zero
	}
	return credit, nil
}

// metaDollars extracts the dollar amount from a sub-ledger entry's meta.
// JSON round-trips deliver numbers as float64; older rows may hold strings.
func metaDollars(meta models.JSONMap) decimal.Decimal {
	raw, ok := meta["dollars"]
	if !ok {
		return decimal.Zero
	}
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// UserEntries lists a user's ledger entries, newest first.
func (s *LedgerService) UserEntries(userID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	q := s.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// AllEntries lists ledger entries across all users, newest first, with the
// owning user preloaded for the staff ledger view.
func (s *LedgerService) AllEntries(limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.Preload("User").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
