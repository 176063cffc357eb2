package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var _ CustomerService = (*CustomerServiceImpl)(nil)

var phonePattern = regexp.MustCompile(`^[0-9]{10,}$`)

// CustomerServiceImpl handles customer business logic
type CustomerServiceImpl struct {
	customerRepo repositories.CustomerRepository
	orderRepo    repositories.OrderRepository
	log          *zap.Logger
}

// NewCustomerService creates a new CustomerServiceImpl
func NewCustomerService(customerRepo repositories.CustomerRepository, orderRepo repositories.OrderRepository, log *zap.Logger) *CustomerServiceImpl {
	return &CustomerServiceImpl{
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		log:          log,
	}
}

// ListCustomers retrieves a page of customers, refreshing the cached spend of each
func (s *CustomerServiceImpl) ListCustomers(ctx context.Context, page, limit int) ([]*models.Customer, models.Pagination, error) {
	customers, err := s.customerRepo.FindAll(ctx, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list customers: %w", err)
	}
	total, err := s.customerRepo.Count(ctx)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to count customers: %w", err)
	}

	ids := make([]primitive.ObjectID, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	sums, err := s.orderRepo.SumDeliveredByCustomer(ctx, ids)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to sum delivered orders: %w", err)
	}
	for _, c := range customers {
		spent := sums[c.ID]
		if spent == c.TotalSpent {
			continue
		}
		c.TotalSpent = spent
		if err := s.customerRepo.UpdateTotalSpent(ctx, c.ID, spent); err != nil {
			s.log.Warn("failed to refresh cached totalSpent",
				zap.String("customerId", c.ID.Hex()), zap.Error(err))
		}
	}

	return customers, models.NewPagination(page, limit, total), nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerServiceImpl) GetCustomer(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("customer %s: %w", id.Hex(), err)
	}
	return customer, nil
}

// CreateCustomer validates and stores a new customer
func (s *CustomerServiceImpl) CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	customer := &models.Customer{
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}
	if in.Visits != nil {
		customer.Visits = *in.Visits
	}
	if in.Address != nil {
		addr := *in.Address
		customer.Address = &addr
	}
	if err := validateCustomer(customer); err != nil {
		return nil, err
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	s.log.Info("customer created", zap.String("customerId", customer.ID.Hex()))
	return customer, nil
}

// UpdateCustomer applies the non-nil fields of in to a customer
func (s *CustomerServiceImpl) UpdateCustomer(ctx context.Context, id primitive.ObjectID, in CustomerUpdateInput) (*models.Customer, error) {
	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		customer.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		customer.Email = normalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		customer.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Visits != nil {
		customer.Visits = *in.Visits
	}
	if in.Address != nil {
		addr := *in.Address
		customer.Address = &addr
	}
	if err := validateCustomer(customer); err != nil {
		return nil, err
	}

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

// DeleteCustomer deletes a customer and its orders
func (s *CustomerServiceImpl) DeleteCustomer(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return err
	}
	deleted, err := s.orderRepo.DeleteByCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer orders: %w", err)
	}
	if err := s.customerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	s.log.Info("customer deleted",
		zap.String("customerId", id.Hex()),
		zap.Int64("ordersDeleted", deleted))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCustomer(c *models.Customer) error {
	var problems []string
	if len([]rune(c.Name)) < 2 {
		problems = append(problems, "Name must be at least 2 characters long")
	}
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		problems = append(problems, "Please provide a valid email address")
	}
	if c.Phone != "" && !phonePattern.MatchString(c.Phone) {
		problems = append(problems, "Phone number must be at least 10 digits and contain only numbers")
	}
	if c.Visits < 0 {
		problems = append(problems, "Visits must not be negative")
	}
	if len(problems) > 0 {
		return newValidationError(problems...)
	}
	return nil
}
