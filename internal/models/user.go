package models

import (
	"time"
)

// Tier is a loyalty tier derived from accumulated points.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Rank orders tiers for comparison; settlement only ever moves rank upward.
func (t Tier) Rank() int {
	switch t {
	case TierGold:
		return 2
	case TierSilver:
		return 1
	default:
		return 0
	}
}

// User roles. Banned users keep their rows; only the role changes.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleCEO      = "ceo"
	RoleBanned   = "banned"
)

// User represents an account on the marketplace. Points is a denormalized
// running total of ledger deltas and is only ever written together with a
// LedgerEntry inside the same transaction.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:120;not null" json:"email"`
	Password     string    `gorm:"size:100;not null" json:"-"`
	Role         string    `gorm:"size:20;default:customer;index" json:"role"`
	Discord      *string   `gorm:"size:32" json:"discord,omitempty"`
	Points       int       `gorm:"default:0" json:"points"`
	Tier         Tier      `gorm:"size:10;default:bronze" json:"tier"`
	Level        int       `gorm:"default:1" json:"level"`
	ReferralCode string    `gorm:"uniqueIndex;size:16;not null" json:"referral_code"`
	ReferredByID *uint     `gorm:"index" json:"referred_by_id,omitempty"`
	ReferredBy   *User     `gorm:"foreignKey:ReferredByID" json:"referred_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the role carries staff-equivalent privilege.
func IsStaff(role string) bool {
	return role == RoleStaff || role == RoleCEO
}
