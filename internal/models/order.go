package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is created exactly once per ticket by the settlement workflow.
// Amount is the net amount actually charged, after store-credit deduction.
// The unique index on TicketID is what makes concurrent settlement safe.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TicketID      uint            `gorm:"uniqueIndex;not null" json:"ticket_id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Code          string          `gorm:"uniqueIndex;size:20;not null" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status        string          `gorm:"size:20;default:completed" json:"status"`
	PaymentMethod string          `gorm:"size:20;default:crypto" json:"payment_method"`
	Review        *Review         `gorm:"foreignKey:OrderID" json:"review,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

// Review is a customer rating attached to a completed order, at most one per order.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	Order     *Order    `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"size:1000" json:"comment"`
	IsPublic  bool      `gorm:"default:true;index" json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
