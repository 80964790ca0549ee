package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral records a commission credited to a referrer for a referred user's
// first completed order. The unique index on ReferredID is the exactly-once
// guard: each referred user is credited at most once, ever.
type Referral struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ReferrerID uint            `gorm:"not null;index" json:"referrer_id"`
	Referrer   *User           `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	ReferredID uint            `gorm:"uniqueIndex;not null" json:"referred_id"`
	Referred   *User           `gorm:"foreignKey:ReferredID" json:"referred,omitempty"`
	Commission decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"commission"`
	Status     string          `gorm:"size:20;default:completed" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
