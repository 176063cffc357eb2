package services

import (
	"context"

	"github.com/minicrm/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomerService defines the interface for customer operations
type CustomerService interface {
	// ListCustomers returns a page of customers with TotalSpent refreshed from delivered orders
	ListCustomers(ctx context.Context, page, limit int) ([]*models.Customer, models.Pagination, error)
	GetCustomer(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id primitive.ObjectID, in CustomerUpdateInput) (*models.Customer, error)
	// DeleteCustomer removes the customer together with its orders
	DeleteCustomer(ctx context.Context, id primitive.ObjectID) error
}

// OrderService defines the interface for order operations
type OrderService interface {
	ListOrders(ctx context.Context, page, limit int) ([]*models.Order, models.Pagination, error)
	ListCustomerOrders(ctx context.Context, customerID primitive.ObjectID, page, limit int) ([]*models.Order, models.Pagination, error)
	GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	CreateOrder(ctx context.Context, in OrderInput) (*models.Order, error)
	UpdateOrder(ctx context.Context, id primitive.ObjectID, in OrderInput) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error
}

// SegmentService defines the interface for segment operations
type SegmentService interface {
	ListSegments(ctx context.Context, page, limit int) ([]*models.Segment, models.Pagination, error)
	GetSegment(ctx context.Context, id primitive.ObjectID) (*models.Segment, error)
	CreateSegment(ctx context.Context, in SegmentInput, createdBy primitive.ObjectID) (*models.Segment, error)
	UpdateSegment(ctx context.Context, id primitive.ObjectID, in SegmentInput) (*models.Segment, error)
	DeleteSegment(ctx context.Context, id primitive.ObjectID) error
	// PreviewSegment counts the customers the rules would select
	PreviewSegment(ctx context.Context, in PreviewInput) (int64, error)
	SegmentCustomers(ctx context.Context, id primitive.ObjectID) (*Audience, error)
}

// CampaignService defines the interface for campaign operations
type CampaignService interface {
	ListCampaigns(ctx context.Context, page, limit int) ([]*models.Campaign, models.Pagination, error)
	GetCampaign(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error)
	CreateCampaign(ctx context.Context, in CampaignInput) (*models.Campaign, error)
	UpdateCampaign(ctx context.Context, id primitive.ObjectID, in CampaignInput) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, id primitive.ObjectID) error
	CampaignCustomers(ctx context.Context, id primitive.ObjectID) (*Audience, error)
	// SendCampaign resolves the audience, dispatches the message and moves the
	// campaign to its terminal status
	SendCampaign(ctx context.Context, id, userID primitive.ObjectID) (*SendResult, error)
	CampaignMessages(ctx context.Context, id primitive.ObjectID, page, limit int) ([]*models.Message, models.Pagination, error)
}

// MessageService defines the interface for message operations
type MessageService interface {
	ListMessages(ctx context.Context, userID primitive.ObjectID) ([]*models.Message, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Message, error)
}
