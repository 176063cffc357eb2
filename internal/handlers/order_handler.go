package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/services"
	"go.uber.org/zap"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService services.OrderService
	log          *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, log: log}
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, limit := pageParams(c)
	orders, pagination, err := h.orderService.ListOrders(c, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": pagination})
}

// ListCustomerOrders handles GET /orders/customer/:customerId
func (h *OrderHandler) ListCustomerOrders(c *gin.Context) {
	customerID, ok := parseObjectID(c, "customerId", "customer")
	if !ok {
		return
	}
	page, limit := pageParams(c)
	orders, pagination, err := h.orderService.ListCustomerOrders(c, customerID, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": pagination})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "order")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var in services.OrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.orderService.CreateOrder(c, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// UpdateOrder handles PUT /orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "order")
	if !ok {
		return
	}
	var in services.OrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.orderService.UpdateOrder(c, id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "order")
	if !ok {
		return
	}
	var request struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.orderService.UpdateOrderStatus(c, id, request.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder handles DELETE /orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "order")
	if !ok {
		return
	}
	if err := h.orderService.DeleteOrder(c, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
