package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minicrm/backend/internal/services"
	"go.uber.org/zap"
)

// CustomerHandler handles customer-related HTTP requests
type CustomerHandler struct {
	customerService services.CustomerService
	log             *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService services.CustomerService, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, log: log}
}

// ListCustomers handles GET /customers
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	page, limit := pageParams(c)
	customers, pagination, err := h.customerService.ListCustomers(c, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers, "pagination": pagination})
}

// GetCustomer handles GET /customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "customer")
	if !ok {
		return
	}
	customer, err := h.customerService.GetCustomer(c, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// CreateCustomer handles POST /customers
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var in services.CustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	customer, err := h.customerService.CreateCustomer(c, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer handles PUT /customers/:id
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "customer")
	if !ok {
		return
	}
	var in services.CustomerUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	customer, err := h.customerService.UpdateCustomer(c, id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer handles DELETE /customers/:id
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "customer")
	if !ok {
		return
	}
	if err := h.customerService.DeleteCustomer(c, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
