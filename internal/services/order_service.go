package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var _ OrderService = (*OrderServiceImpl)(nil)

const orderNumberAttempts = 3

// OrderServiceImpl handles order business logic. Every write refreshes the
// owning customer's cached totalSpent.
type OrderServiceImpl struct {
	orderRepo    repositories.OrderRepository
	customerRepo repositories.CustomerRepository
	log          *zap.Logger
	now          func() time.Time
}

// NewOrderService creates a new OrderServiceImpl
func NewOrderService(orderRepo repositories.OrderRepository, customerRepo repositories.CustomerRepository, log *zap.Logger) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		log:          log,
		now:          time.Now,
	}
}

// ListOrders retrieves a page of orders
func (s *OrderServiceImpl) ListOrders(ctx context.Context, page, limit int) ([]*models.Order, models.Pagination, error) {
	orders, err := s.orderRepo.FindAll(ctx, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list orders: %w", err)
	}
	total, err := s.orderRepo.Count(ctx)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to count orders: %w", err)
	}
	return orders, models.NewPagination(page, limit, total), nil
}

// ListCustomerOrders retrieves a page of one customer's orders
func (s *OrderServiceImpl) ListCustomerOrders(ctx context.Context, customerID primitive.ObjectID, page, limit int) ([]*models.Order, models.Pagination, error) {
	orders, err := s.orderRepo.FindByCustomer(ctx, customerID, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list customer orders: %w", err)
	}
	total, err := s.orderRepo.CountByCustomer(ctx, customerID)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to count customer orders: %w", err)
	}
	return orders, models.NewPagination(page, limit, total), nil
}

// GetOrder retrieves an order by ID
func (s *OrderServiceImpl) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), err)
	}
	return order, nil
}

// CreateOrder stores a new order with a generated order number
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, in OrderInput) (*models.Order, error) {
	order, err := s.buildOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	for attempt := 1; ; attempt++ {
		order.ID = primitive.NilObjectID
		order.OrderNumber = s.newOrderNumber()
		err = s.orderRepo.Create(ctx, order)
		if !errors.Is(err, repositories.ErrDuplicate) || attempt == orderNumberAttempts {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.refreshCustomerSpend(ctx, order.CustomerID)
	return order, nil
}

// UpdateOrder replaces an order's contents, keeping its number
func (s *OrderServiceImpl) UpdateOrder(ctx context.Context, id primitive.ObjectID, in OrderInput) (*models.Order, error) {
	existing, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	order, err := s.buildOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	order.ID = existing.ID
	order.OrderNumber = existing.OrderNumber
	order.CreatedAt = existing.CreatedAt
	if order.Status == "" {
		order.Status = existing.Status
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.refreshCustomerSpend(ctx, order.CustomerID)
	if existing.CustomerID != order.CustomerID {
		s.refreshCustomerSpend(ctx, existing.CustomerID)
	}
	return order, nil
}

// UpdateOrderStatus changes the status of an order
func (s *OrderServiceImpl) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, newValidationError(fmt.Sprintf("invalid order status %q", status))
	}
	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), err)
	}
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refreshCustomerSpend(ctx, order.CustomerID)
	return order, nil
}

// DeleteOrder deletes an order
func (s *OrderServiceImpl) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	s.refreshCustomerSpend(ctx, order.CustomerID)
	return nil
}

func (s *OrderServiceImpl) buildOrder(ctx context.Context, in OrderInput) (*models.Order, error) {
	customerID, err := primitive.ObjectIDFromHex(in.CustomerID)
	if err != nil {
		return nil, newValidationError("Invalid customer ID")
	}
	if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
		return nil, fmt.Errorf("customer %s: %w", customerID.Hex(), err)
	}

	var problems []string
	if len(in.Items) == 0 {
		problems = append(problems, "Order must contain at least one item")
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			problems = append(problems, fmt.Sprintf("items[%d].name is required", i))
		}
		if item.Quantity < 1 {
			problems = append(problems, fmt.Sprintf("items[%d].quantity must be at least 1", i))
		}
		if item.Price < 0 {
			problems = append(problems, fmt.Sprintf("items[%d].price must not be negative", i))
		}
	}
	if in.Status != "" && !in.Status.IsValid() {
		problems = append(problems, fmt.Sprintf("invalid order status %q", in.Status))
	}
	if len(problems) > 0 {
		return nil, newValidationError(problems...)
	}

	order := &models.Order{
		CustomerID:      customerID,
		Items:           append([]models.OrderItem(nil), in.Items...),
		Status:          in.Status,
		ShippingAddress: in.ShippingAddress,
	}
	order.TotalAmount = order.ItemsTotal()
	return order, nil
}

func (s *OrderServiceImpl) newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%d", s.now().UnixMilli(), rand.Intn(1000))
}

// refreshCustomerSpend recomputes the cached spend; failures only leave the cache stale
func (s *OrderServiceImpl) refreshCustomerSpend(ctx context.Context, customerID primitive.ObjectID) {
	sums, err := s.orderRepo.SumDeliveredByCustomer(ctx, []primitive.ObjectID{customerID})
	if err == nil {
		err = s.customerRepo.UpdateTotalSpent(ctx, customerID, sums[customerID])
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		s.log.Warn("failed to refresh cached totalSpent",
			zap.String("customerId", customerID.Hex()), zap.Error(err))
	}
}
