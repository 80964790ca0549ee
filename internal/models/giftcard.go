package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GiftCard is a single-use code. IsActive flips true→false exactly once,
// atomically with setting RedeemedByID and crediting the redeemer.
type GiftCard struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"uniqueIndex;size:20;not null" json:"code"`
	Balance      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
	CreatedByID  uint            `gorm:"not null" json:"created_by"`
	Creator      *User           `gorm:"foreignKey:CreatedByID" json:"creator,omitempty"`
	RedeemedByID *uint           `json:"redeemed_by,omitempty"`
	Redeemer     *User           `gorm:"foreignKey:RedeemedByID" json:"redeemer,omitempty"`
	RedeemedAt   *time.Time      `json:"redeemed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (GiftCard) TableName() string {
	return "gift_cards"
}
