package mongodb

import (
	"context"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ordersCollection = "orders"

// OrderRepository implements the repositories.OrderRepository interface
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *mongo.Database) repositories.OrderRepository {
	return &OrderRepository{
		collection: db.Collection(ordersCollection),
	}
}

// Create creates a new order
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	_, err := r.collection.InsertOne(ctx, order)
	return translateError(err)
}

// FindByID finds an order by ID
func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// FindAll finds all orders with pagination
func (r *OrderRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Order, error) {
	return r.find(ctx, bson.M{}, pageOptions(page, limit))
}

// FindByCustomer finds a customer's orders with pagination
func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID primitive.ObjectID, page, limit int) ([]*models.Order, error) {
	return r.find(ctx, bson.M{"customerId": customerID}, pageOptions(page, limit))
}

// CountByCustomer counts a customer's orders
func (r *OrderRepository) CountByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"customerId": customerID})
}

func (r *OrderRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*models.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []*models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Update replaces an order
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// UpdateStatus changes the status of an order
func (r *OrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error {
	return checkMatched(r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now()},
	}))
}

// Delete deletes an order
func (r *OrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// DeleteByCustomer deletes every order of a customer
func (r *OrderRepository) DeleteByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"customerId": customerID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count counts all orders
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// SumDeliveredByCustomer aggregates delivered order totals per customer
func (r *OrderRepository) SumDeliveredByCustomer(ctx context.Context, customerIDs []primitive.ObjectID) (map[primitive.ObjectID]float64, error) {
	sums := make(map[primitive.ObjectID]float64, len(customerIDs))
	if len(customerIDs) == 0 {
		return sums, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"customerId": bson.M{"$in": customerIDs},
			"status":     models.OrderStatusDelivered,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$customerId",
			"total": bson.M{"$sum": "$totalAmount"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		CustomerID primitive.ObjectID `bson:"_id"`
		Total      float64            `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.CustomerID] = row.Total
	}
	return sums, nil
}
