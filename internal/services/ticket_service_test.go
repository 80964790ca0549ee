package services

import (
	"errors"
	"strings"
	"testing"

	"account-market/internal/models"
	"account-market/internal/notify"
)

func TestTicketStatusTransitions(t *testing.T) {
	cases := []struct {
		from models.TicketStatus
		to   models.TicketStatus
		want bool
	}{
		{models.TicketOpen, models.TicketPaymentPending, true},
		{models.TicketOpen, models.TicketCompleted, true},
		{models.TicketOpen, models.TicketClosed, true},
		{models.TicketPaymentPending, models.TicketCompleted, true},
		{models.TicketPaymentPending, models.TicketClosed, true},
		{models.TicketCompleted, models.TicketClosed, false},
		{models.TicketCompleted, models.TicketOpen, false},
		{models.TicketClosed, models.TicketOpen, false},
		{models.TicketClosed, models.TicketCompleted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}

	if models.TicketOpen.Terminal() || models.TicketPaymentPending.Terminal() {
		t.Error("open states reported terminal")
	}
	if !models.TicketCompleted.Terminal() || !models.TicketClosed.Terminal() {
		t.Error("terminal states reported open")
	}
}

func TestMarkOrderPaid(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTicketService(db, notify.NewHub())

	user := createTestUser(t, db, "tkuser1", 0, models.TierBronze)
	ticket := createTestTicket(t, db, user.ID, models.TicketOpen)

	updated, err := svc.MarkOrderPaid(ticket.ID, user.ID)
	if err != nil {
		t.Fatalf("MarkOrderPaid failed: %v", err)
	}
	if updated.Status != models.TicketPaymentPending {
		t.Errorf("expected payment_pending, got %s", updated.Status)
	}

	// Repeating the transition is rejected.
	_, err = svc.MarkOrderPaid(ticket.ID, user.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMarkOrderPaidWrongOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTicketService(db, notify.NewHub())

	owner := createTestUser(t, db, "tkuser2", 0, models.TierBronze)
	stranger := createTestUser(t, db, "tkuser3", 0, models.TierBronze)
	ticket := createTestTicket(t, db, owner.ID, models.TicketOpen)

	_, err := svc.MarkOrderPaid(ticket.ID, stranger.ID)
	if !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("expected ErrTicketNotFound for non-owner, got %v", err)
	}
}

func TestCloseCompletedTicket(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTicketService(db, notify.NewHub())

	user := createTestUser(t, db, "tkuser4", 0, models.TierBronze)
	ticket := createTestTicket(t, db, user.ID, models.TicketCompleted)

	_, err := svc.Close(ticket.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed ticket closed: %v", err)
	}
}

func TestAddMessageAccessControl(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTicketService(db, notify.NewHub())

	owner := createTestUser(t, db, "tkuser5", 0, models.TierBronze)
	stranger := createTestUser(t, db, "tkuser6", 0, models.TierBronze)
	staff := createTestUser(t, db, "tkstaff1", 0, models.TierBronze)
	db.Model(&models.User{}).Where("id = ?", staff.ID).Update("role", models.RoleStaff)

	ticket := createTestTicket(t, db, owner.ID, models.TicketOpen)

	msg, err := svc.AddMessage(ticket.ID, owner.ID, models.RoleCustomer, "hello")
	if err != nil {
		t.Fatalf("owner message failed: %v", err)
	}
	if msg.Sender != models.SenderCustomer {
		t.Errorf("expected customer sender, got %s", msg.Sender)
	}

	staffMsg, err := svc.AddMessage(ticket.ID, staff.ID, models.RoleStaff, "hi, checking now")
	if err != nil {
		t.Fatalf("staff message failed: %v", err)
	}
	if staffMsg.Sender != models.SenderStaff {
		t.Errorf("expected staff sender, got %s", staffMsg.Sender)
	}

	_, err = svc.AddMessage(ticket.ID, stranger.ID, models.RoleCustomer, "let me in")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestStaffMessageNotifiesOwner(t *testing.T) {
	db := setupTestDB(t)
	hub := notify.NewHub()
	svc := NewTicketService(db, hub)

	owner := createTestUser(t, db, "tkuser7", 0, models.TierBronze)
	staff := createTestUser(t, db, "tkstaff2", 0, models.TierBronze)
	ticket := createTestTicket(t, db, owner.ID, models.TicketOpen)

	id, ch := hub.SubscribeUser(owner.ID)
	defer hub.UnsubscribeUser(owner.ID, id)

	if _, err := svc.AddMessage(ticket.ID, staff.ID, models.RoleStaff, "your account is ready"); err != nil {
		t.Fatalf("staff message failed: %v", err)
	}

	select {
	case e := <-ch:
		if e.Type != "message" {
			t.Errorf("expected message event, got %s", e.Type)
		}
		if e.Body != "your account is ready" {
			t.Errorf("unexpected preview: %s", e.Body)
		}
	default:
		t.Error("owner received no notification")
	}
}

func TestDeliverBuildsMessage(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTicketService(db, notify.NewHub())

	user := createTestUser(t, db, "tkuser8", 0, models.TierBronze)
	ticket := createTestTicket(t, db, user.ID, models.TicketCompleted)

	msg, err := svc.Deliver(ticket.ID, DeliveryInput{
		Username: "acct_login",
		Password: "acct_pass",
		Notes:    "change the password after first login",
	})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if msg.Sender != models.SenderStaff {
		t.Errorf("delivery should come from staff, got %s", msg.Sender)
	}
	for _, want := range []string{"Delivery Details", "Username: acct_login", "Password: acct_pass", "Notes:"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("delivery message missing %q:\n%s", want, msg.Body)
		}
	}
	if strings.Contains(msg.Body, "Email:") {
		t.Error("empty email field should be omitted")
	}
}

func TestListVisibility(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTicketService(db, notify.NewHub())

	alice := createTestUser(t, db, "tkuser9", 0, models.TierBronze)
	bob := createTestUser(t, db, "tkuser10", 0, models.TierBronze)
	createTestTicket(t, db, alice.ID, models.TicketOpen)
	createTestTicket(t, db, bob.ID, models.TicketOpen)

	own, err := svc.List(alice.ID, models.RoleCustomer, 0, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(own) != 1 {
		t.Errorf("customer sees %d tickets, want 1", len(own))
	}

	all, err := svc.List(alice.ID, models.RoleStaff, 0, 0)
	if err != nil {
		t.Fatalf("staff List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("staff sees %d tickets, want 2", len(all))
	}
}
