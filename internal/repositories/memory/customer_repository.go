package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"github.com/minicrm/backend/internal/segments"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomerRepository is an in-memory repositories.CustomerRepository
type CustomerRepository struct {
	mu        sync.RWMutex
	customers map[primitive.ObjectID]models.Customer
}

// NewCustomerRepository creates an empty customer repository
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{customers: make(map[primitive.ObjectID]models.Customer)}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(customer.Email, primitive.NilObjectID) {
		return repositories.ErrDuplicate
	}
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	if _, exists := r.customers[customer.ID]; exists {
		return repositories.ErrDuplicate
	}
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = customer.CreatedAt
	r.customers[customer.ID] = cloneCustomer(*customer)
	return nil
}

func (r *CustomerRepository) emailTaken(email string, except primitive.ObjectID) bool {
	for id, c := range r.customers {
		if id != except && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (r *CustomerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneCustomer(c)
	return &out, nil
}

func (r *CustomerRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*models.Customer{}
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		c, ok := r.customers[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		cc := cloneCustomer(c)
		out = append(out, &cc)
	}
	return out, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context, pageNum, limit int) ([]*models.Customer, error) {
	all := r.snapshot()
	newestFirst(all, func(c *models.Customer) (time.Time, primitive.ObjectID) { return c.CreatedAt, c.ID })
	return page(all, pageNum, limit), nil
}

func (r *CustomerRepository) FindMatching(ctx context.Context, pred segments.Predicate) ([]*models.Customer, error) {
	out := []*models.Customer{}
	for _, c := range r.snapshot() {
		if pred.Match(c.Record()) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (r *CustomerRepository) CountMatching(ctx context.Context, pred segments.Predicate) (int64, error) {
	matched, err := r.FindMatching(ctx, pred)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[customer.ID]; !ok {
		return repositories.ErrNotFound
	}
	if r.emailTaken(customer.Email, customer.ID) {
		return repositories.ErrDuplicate
	}
	customer.UpdatedAt = time.Now()
	r.customers[customer.ID] = cloneCustomer(*customer)
	return nil
}

func (r *CustomerRepository) UpdateTotalSpent(ctx context.Context, id primitive.ObjectID, totalSpent float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.customers[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.TotalSpent = totalSpent
	r.customers[id] = c
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.customers, id)
	return nil
}

func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.customers)), nil
}

func (r *CustomerRepository) snapshot() []*models.Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		cc := cloneCustomer(c)
		out = append(out, &cc)
	}
	return out
}

func cloneCustomer(c models.Customer) models.Customer {
	if c.Address != nil {
		addr := *c.Address
		c.Address = &addr
	}
	return c
}
