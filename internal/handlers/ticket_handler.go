package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"account-market/internal/auth"
	"account-market/internal/models"
	"account-market/internal/notify"
	"account-market/internal/services"
)

// TicketHandler exposes the ticket lifecycle: creation, chat, live streams and
// the staff settlement endpoints.
type TicketHandler struct {
	tickets    *services.TicketService
	settlement *services.SettlementService
	hub        *notify.Hub
	audit      *services.AuditService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(tickets *services.TicketService, settlement *services.SettlementService, hub *notify.Hub, audit *services.AuditService) *TicketHandler {
	return &TicketHandler{tickets: tickets, settlement: settlement, hub: hub, audit: audit}
}

// Create opens a ticket.
// POST /api/tickets
func (h *TicketHandler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req struct {
		Type             string  `json:"type" binding:"required,max=64"`
		Subject          *string `json:"subject"`
		Description      string  `json:"description" binding:"required,max=4000"`
		Priority         string  `json:"priority" binding:"max=16"`
		LifetimeWarranty bool    `json:"lifetime_warranty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	ticket, err := h.tickets.Create(userID, services.CreateTicketInput{
		Type:             req.Type,
		Subject:          req.Subject,
		Description:      req.Description,
		Priority:         req.Priority,
		LifetimeWarranty: req.LifetimeWarranty,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ticket"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Ticket created", "ticket": ticket})
	h.audit.Record("ticket.create", &userID, models.JSONMap{"ticketId": ticket.ID, "type": ticket.Type})
}

// List returns the caller's tickets, or all tickets for staff.
// GET /api/tickets
func (h *TicketHandler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	role, _ := auth.GetRole(c)

	limit := queryInt(c, "limit", 50, 200)
	offset := queryInt(c, "offset", 0, 0)

	tickets, err := h.tickets.List(userID, role, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tickets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// Get returns one ticket with its messages and order.
// GET /api/tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, _ := auth.GetUserID(c)
	role, _ := auth.GetRole(c)

	ticket, err := h.tickets.Get(ticketID, queryInt(c, "messages_limit", 0, 500))
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ticket"})
		return
	}
	if !services.CanAccess(ticket, userID, role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// AddMessage posts a chat message into the ticket.
// POST /api/tickets/:id/messages
func (h *TicketHandler) AddMessage(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, _ := auth.GetUserID(c)
	role, _ := auth.GetRole(c)

	var req struct {
		Message string `json:"message" binding:"required,max=4000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	msg, err := h.tickets.AddMessage(ticketID, userID, role, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		case errors.Is(err, services.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Stream pushes a ticket's live events over SSE. The JWT rides in the token
// query parameter and the caller must be able to access the ticket.
// GET /api/tickets/:id/stream
func (h *TicketHandler) Stream(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	claims, ok := streamClaims(c)
	if !ok {
		return
	}

	ticket, err := h.tickets.Get(ticketID, 1)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	if !services.CanAccess(ticket, claims.UserID, claims.Role) {
		c.Status(http.StatusForbidden)
		return
	}

	id, ch := h.hub.SubscribeTicket(ticketID)
	defer h.hub.UnsubscribeTicket(ticketID, id)

	hello := notify.Event{Type: "connected", Status: string(ticket.Status)}
	streamEvents(c, ch, &hello)
}

// MarkPaid is the customer's "I have paid" transition to payment_pending.
// POST /api/tickets/:id/order-paid
func (h *TicketHandler) MarkPaid(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, _ := auth.GetUserID(c)

	ticket, err := h.tickets.MarkOrderPaid(ticketID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		case errors.Is(err, services.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment marked as sent", "ticket": ticket})
}

// ConfirmPayment is the staff settlement endpoint: it creates the order,
// applies store credit, credits points and settles any referral.
// POST /api/tickets/:id/payment-confirmed
func (h *TicketHandler) ConfirmPayment(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := auth.GetUserID(c)

	var req struct {
		Amount        float64 `json:"amount" binding:"required,gt=0"`
		PaymentMethod string  `json:"payment_method" binding:"max=32"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	result, err := h.settlement.ConfirmPayment(ticketID, decimal.NewFromFloat(req.Amount), req.PaymentMethod, actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		case errors.Is(err, services.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm payment"})
		}
		return
	}

	message := "Payment confirmed and order created"
	if result.AlreadySettled {
		message = "Ticket already settled"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        message,
		"orderId":        result.OrderCode,
		"ticket":         result.Ticket,
		"order":          result.Order,
		"points_earned":  result.PointsEarned,
		"applied_credit": result.AppliedCredit,
		"net_amount":     result.NetAmount,
	})
}

// Deliver posts account credentials into the ticket as a staff message.
// POST /api/tickets/:id/deliver
func (h *TicketHandler) Deliver(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username" binding:"max=128"`
		Password string `json:"password" binding:"max=128"`
		Email    string `json:"email" binding:"max=128"`
		Notes    string `json:"notes" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	msg, err := h.tickets.Deliver(ticketID, services.DeliveryInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Notes:    req.Notes,
	})
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deliver"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Delivery posted", "delivery": msg})
}

// Assign sets or clears the assigned staff member.
// PUT /api/tickets/:id/assign
func (h *TicketHandler) Assign(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		StaffID *uint `json:"staff_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	ticket, err := h.tickets.Assign(ticketID, req.StaffID)
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign ticket"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket assigned", "ticket": ticket})
}

// AddNote attaches an internal staff note.
// POST /api/tickets/:id/notes
func (h *TicketHandler) AddNote(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	authorID, _ := auth.GetUserID(c)

	var req struct {
		Content string `json:"content" binding:"required,max=4000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	note, err := h.tickets.AddNote(ticketID, authorID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add note"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"note": note})
}

// Notes lists a ticket's internal staff notes.
// GET /api/tickets/:id/notes
func (h *TicketHandler) Notes(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	notes, err := h.tickets.Notes(ticketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// Close abandons a ticket.
// POST /api/tickets/:id/close
func (h *TicketHandler) Close(c *gin.Context) {
	ticketID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	ticket, err := h.tickets.Close(ticketID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		case errors.Is(err, services.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close ticket"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket closed", "ticket": ticket})
}
