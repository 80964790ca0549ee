package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/models"
	"account-market/internal/services"
)

// OrderHandler exposes order history and receipts.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List returns the caller's orders; staff may list everyone's with ?all=true.
// GET /api/orders
func (h *OrderHandler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	role, _ := auth.GetRole(c)

	limit := queryInt(c, "limit", 50, 200)
	offset := queryInt(c, "offset", 0, 0)

	if c.Query("all") == "true" && models.IsStaff(role) {
		orders, err := h.orders.List(limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
		return
	}

	orders, err := h.orders.ListForUser(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Receipt returns one order by its code, for the owner or staff.
// GET /api/orders/:code
func (h *OrderHandler) Receipt(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	role, _ := auth.GetRole(c)

	order, ticket, err := h.orders.Receipt(c.Param("code"))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}
	if order.UserID != userID && !models.IsStaff(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "ticket": ticket})
}
