package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"account-market/internal/models"
	"account-market/internal/notify"
)

// TicketService handles the ticket lifecycle around the settlement core:
// creation, messaging, assignment and the customer/staff status transitions.
type TicketService struct {
	db  *gorm.DB
	hub *notify.Hub
}

// NewTicketService creates a new TicketService
func NewTicketService(db *gorm.DB, hub *notify.Hub) *TicketService {
	return &TicketService{db: db, hub: hub}
}

// CreateTicketInput carries the customer-supplied ticket fields.
type CreateTicketInput struct {
	Type             string
	Subject          *string
	Description      string
	Priority         string
	LifetimeWarranty bool
}

// Create opens a new ticket for the customer.
func (s *TicketService) Create(userID uint, in CreateTicketInput) (*models.Ticket, error) {
	if in.Priority == "" {
		in.Priority = "normal"
	}
	ticket := models.Ticket{
		UserID:           userID,
		Type:             in.Type,
		Subject:          in.Subject,
		Description:      in.Description,
		Priority:         in.Priority,
		Status:           models.TicketOpen,
		LifetimeWarranty: in.LifetimeWarranty,
	}
	if err := s.db.Create(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// List returns tickets visible to the caller: staff see everything,
// customers only their own.
func (s *TicketService) List(userID uint, role string, limit, offset int) ([]models.Ticket, error) {
	q := s.db.Preload("User").Preload("AssignedUser").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp asc")
		}).
		Preload("Order").
		Order("created_at DESC")
	if !models.IsStaff(role) {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var tickets []models.Ticket
	if err := q.Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// Get loads a ticket with its messages and order; the caller is responsible
// for the access check via CanAccess.
func (s *TicketService) Get(ticketID uint, messagesLimit int) (*models.Ticket, error) {
	var ticket models.Ticket
	q := s.db.Preload("User").Preload("AssignedUser").
		Preload("Order").Preload("Order.Review")
	if messagesLimit > 0 {
		q = q.Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp asc").Limit(messagesLimit)
		})
	} else {
		q = q.Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp asc")
		})
	}
	if err := q.First(&ticket, ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// CanAccess reports whether the caller may view the ticket.
func CanAccess(ticket *models.Ticket, userID uint, role string) bool {
	return models.IsStaff(role) || ticket.UserID == userID
}

// AddMessage appends a chat message and pushes it to live watchers. Staff
// messages additionally notify the ticket owner.
func (s *TicketService) AddMessage(ticketID uint, userID uint, role string, body string) (*models.Message, error) {
	ticket, err := s.Get(ticketID, 1)
	if err != nil {
		return nil, err
	}
	if !CanAccess(ticket, userID, role) {
		return nil, ErrNotAuthorized
	}

	sender := models.SenderCustomer
	if models.IsStaff(role) {
		sender = models.SenderStaff
	}
	msg := models.Message{
		TicketID: ticketID,
		Sender:   sender,
		Body:     body,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}

	s.hub.PublishTicket(ticketID, notify.Event{Type: "message", ID: msg.ID})
	if sender == models.SenderStaff {
		preview := body
		if len(preview) > 120 {
			preview = preview[:120]
		}
		s.hub.PublishUser(ticket.UserID, notify.Event{
			Type:  "message",
			Title: "New message from staff",
			Body:  preview,
			URL:   fmt.Sprintf("/tickets/%d", ticketID),
		}.Now())
	}
	return &msg, nil
}

// DeliveryInput carries the credential fields staff deliver on completion.
type DeliveryInput struct {
	Username string
	Password string
	Email    string
	Notes    string
}

// Deliver posts the account credentials into the ticket as a staff message.
func (s *TicketService) Deliver(ticketID uint, in DeliveryInput) (*models.Message, error) {
	var ticket models.Ticket
	if err := s.db.First(&ticket, ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	lines := []string{"Delivery Details"}
	if in.Username != "" {
		lines = append(lines, "Username: "+in.Username)
	}
	if in.Password != "" {
		lines = append(lines, "Password: "+in.Password)
	}
	if in.Email != "" {
		lines = append(lines, "Email: "+in.Email)
	}
	if in.Notes != "" {
		lines = append(lines, "Notes: "+in.Notes)
	}

	msg := models.Message{
		TicketID: ticketID,
		Sender:   models.SenderStaff,
		Body:     strings.Join(lines, "\n"),
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}

	s.hub.PublishTicket(ticketID, notify.Event{Type: "delivery", ID: msg.ID})
	return &msg, nil
}

// Assign sets or clears the staff member responsible for a ticket.
func (s *TicketService) Assign(ticketID uint, staffID *uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.First(&ticket, ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if err := s.db.Model(&ticket).Update("assigned_to_id", staffID).Error; err != nil {
		return nil, err
	}
	ticket.AssignedToID = staffID
	if staffID != nil {
		var staff models.User
		if err := s.db.First(&staff, *staffID).Error; err == nil {
			ticket.AssignedUser = &staff
		}
	}
	return &ticket, nil
}

// AddNote attaches an internal staff note to a ticket.
func (s *TicketService) AddNote(ticketID, authorID uint, content string) (*models.TicketNote, error) {
	note := models.TicketNote{
		TicketID: ticketID,
		AuthorID: authorID,
		Content:  content,
	}
	if err := s.db.Create(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

// Notes lists a ticket's internal notes, newest first.
func (s *TicketService) Notes(ticketID uint) ([]models.TicketNote, error) {
	var notes []models.TicketNote
	err := s.db.Where("ticket_id = ?", ticketID).Preload("Author").
		Order("created_at DESC").Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// MarkOrderPaid is the customer-side transition open → payment_pending.
func (s *TicketService) MarkOrderPaid(ticketID, userID uint) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var t models.Ticket
		if err := tx.Where("id = ? AND user_id = ?", ticketID, userID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}
		if !t.Status.CanTransition(models.TicketPaymentPending) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, models.TicketPaymentPending)
		}
		if err := tx.Model(&t).Update("status", models.TicketPaymentPending).Error; err != nil {
			return err
		}
		t.Status = models.TicketPaymentPending
		ticket = &t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.PublishTicket(ticketID, notify.Event{Type: "status", Status: string(models.TicketPaymentPending)})
	return ticket, nil
}

// Close abandons a ticket. Completed tickets cannot be closed; closed is
// terminal.
func (s *TicketService) Close(ticketID uint) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var t models.Ticket
		if err := tx.First(&t, ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}
		if !t.Status.CanTransition(models.TicketClosed) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, models.TicketClosed)
		}
		if err := tx.Model(&t).Update("status", models.TicketClosed).Error; err != nil {
			return err
		}
		t.Status = models.TicketClosed
		ticket = &t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.PublishTicket(ticketID, notify.Event{Type: "status", Status: string(models.TicketClosed)})
	return ticket, nil
}
