package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Ledger entry reasons. The two store_credit reasons form a dollar-denominated
// sub-ledger: their Delta is always 0 and the amount lives in Meta["dollars"].
const (
	ReasonWelcomeBonus     = "welcome_bonus"
	ReasonOrderCompleted   = "order_completed"
	ReasonRedeem           = "redeem"
	ReasonStoreCreditAdd   = "store_credit_add"
	ReasonStoreCreditUse   = "store_credit_use"
	ReasonReferralBonus    = "referral_bonus"
	ReasonGiftCardRedeem   = "gift_card_redeem"
	ReasonManualAdjustment = "manual_adjustment"
)

// JSONMap stores structured context as a JSON column.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	if len(b) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(b, m)
}

// LedgerEntry is one row of the append-only rewards ledger. Entries are never
// mutated or deleted; User.Points equals the sum of Delta for that user.
type LedgerEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Delta     int       `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"size:40;not null;index" json:"reason"`
	Meta      JSONMap   `gorm:"type:jsonb" json:"meta"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
