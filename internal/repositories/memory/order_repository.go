package memory

import (
	"context"
	"sync"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderRepository is an in-memory repositories.OrderRepository
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[primitive.ObjectID]models.Order
}

// NewOrderRepository creates an empty order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[primitive.ObjectID]models.Order)}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.OrderNumber == order.OrderNumber {
			return repositories.ErrDuplicate
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (r *OrderRepository) FindAll(ctx context.Context, pageNum, limit int) ([]*models.Order, error) {
	all := r.filter(func(models.Order) bool { return true })
	return page(all, pageNum, limit), nil
}

func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID primitive.ObjectID, pageNum, limit int) ([]*models.Order, error) {
	all := r.filter(func(o models.Order) bool { return o.CustomerID == customerID })
	return page(all, pageNum, limit), nil
}

func (r *OrderRepository) CountByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error) {
	return int64(len(r.filter(func(o models.Order) bool { return o.CustomerID == customerID }))), nil
}

func (r *OrderRepository) filter(keep func(models.Order) bool) []*models.Order {
	r.mu.RLock()
	out := []*models.Order{}
	for _, o := range r.orders {
		if keep(o) {
			oo := cloneOrder(o)
			out = append(out, &oo)
		}
	}
	r.mu.RUnlock()

	newestFirst(out, func(o *models.Order) (time.Time, primitive.ObjectID) { return o.CreatedAt, o.ID })
	return out
}

func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; !ok {
		return repositories.ErrNotFound
	}
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	r.orders[id] = o
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *OrderRepository) DeleteByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, o := range r.orders {
		if o.CustomerID == customerID {
			delete(r.orders, id)
			n++
		}
	}
	return n, nil
}

func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.orders)), nil
}

func (r *OrderRepository) SumDeliveredByCustomer(ctx context.Context, customerIDs []primitive.ObjectID) (map[primitive.ObjectID]float64, error) {
	wanted := make(map[primitive.ObjectID]bool, len(customerIDs))
	for _, id := range customerIDs {
		wanted[id] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sums := make(map[primitive.ObjectID]float64)
	for _, o := range r.orders {
		if wanted[o.CustomerID] && o.Status == models.OrderStatusDelivered {
			sums[o.CustomerID] += o.TotalAmount
		}
	}
	return sums, nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}
