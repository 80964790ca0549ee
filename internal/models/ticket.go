package models

import (
	"time"
)

// TicketStatus is the ticket state machine. Transitions only move forward;
// completed and closed are terminal.
type TicketStatus string

const (
	TicketOpen           TicketStatus = "open"
	TicketPaymentPending TicketStatus = "payment_pending"
	TicketCompleted      TicketStatus = "completed"
	TicketClosed         TicketStatus = "closed"
)

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketOpen:           {TicketPaymentPending, TicketCompleted, TicketClosed},
	TicketPaymentPending: {TicketCompleted, TicketClosed},
	TicketCompleted:      {},
	TicketClosed:         {},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s TicketStatus) CanTransition(next TicketStatus) bool {
	for _, t := range ticketTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s TicketStatus) Terminal() bool {
	return len(ticketTransitions[s]) == 0
}

// Ticket types.
const (
	TicketTypeBuying  = "buying"
	TicketTypeSupport = "support"
)

// Ticket is a support or purchase conversation between a customer and staff.
// OrderCode is set exactly once, when settlement completes the ticket.
type Ticket struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	UserID           uint         `gorm:"not null;index" json:"user_id"`
	User             *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type             string       `gorm:"size:20;not null" json:"type"`
	Subject          *string      `gorm:"size:200" json:"subject,omitempty"`
	Description      string       `gorm:"type:text;not null" json:"description"`
	Priority         string       `gorm:"size:10;default:normal" json:"priority"`
	Status           TicketStatus `gorm:"size:20;default:open;index" json:"status"`
	OrderCode        *string      `gorm:"size:20" json:"order_id,omitempty"`
	AssignedToID     *uint        `gorm:"index" json:"assigned_to,omitempty"`
	AssignedUser     *User        `gorm:"foreignKey:AssignedToID" json:"assigned_user,omitempty"`
	LifetimeWarranty bool         `gorm:"default:false" json:"lifetime_warranty"`
	Messages         []Message    `gorm:"foreignKey:TicketID" json:"messages,omitempty"`
	Order            *Order       `gorm:"foreignKey:TicketID" json:"order,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// Message senders.
const (
	SenderCustomer = "customer"
	SenderStaff    = "staff"
)

// Message is a single chat line inside a ticket.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  uint      `gorm:"not null;index" json:"ticket_id"`
	Sender    string    `gorm:"size:10;not null" json:"sender"`
	Body      string    `gorm:"column:message;type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}

// TicketNote is an internal staff-only note attached to a ticket.
type TicketNote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  uint      `gorm:"not null;index" json:"ticket_id"`
	AuthorID  uint      `gorm:"not null" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (TicketNote) TableName() string {
	return "ticket_notes"
}
