package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/segments"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches the lookup
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique field is already taken
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotDraft is returned by conditional campaign updates when the
	// campaign has already left the draft state
	ErrNotDraft = errors.New("campaign is not in draft")
)

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	// FindByIDs returns the customers that exist among ids, in no particular order
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Customer, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Customer, error)
	// FindMatching returns every customer matching pred ordered by id
	FindMatching(ctx context.Context, pred segments.Predicate) ([]*models.Customer, error)
	CountMatching(ctx context.Context, pred segments.Predicate) (int64, error)
	Update(ctx context.Context, customer *models.Customer) error
	UpdateTotalSpent(ctx context.Context, id primitive.ObjectID, totalSpent float64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// OrderRepository defines the interface for order data operations
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Order, error)
	FindByCustomer(ctx context.Context, customerID primitive.ObjectID, page, limit int) ([]*models.Order, error)
	CountByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error)
	Update(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error)
	Count(ctx context.Context) (int64, error)
	// SumDeliveredByCustomer sums totalAmount over delivered orders per
	// customer. Customers without delivered orders are absent from the map.
	SumDeliveredByCustomer(ctx context.Context, customerIDs []primitive.ObjectID) (map[primitive.ObjectID]float64, error)
}

// SegmentRepository defines the interface for segment data operations
type SegmentRepository interface {
	Create(ctx context.Context, segment *models.Segment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Segment, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Segment, error)
	Update(ctx context.Context, segment *models.Segment) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// CampaignRepository defines the interface for campaign data operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Campaign, error)
	// Update and Delete only apply to drafts and return ErrNotDraft otherwise
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	SetCustomers(ctx context.Context, id primitive.ObjectID, customerIDs []primitive.ObjectID) error
	UpdateStats(ctx context.Context, id primitive.ObjectID, stats models.CampaignStats) error
	// MarkSent moves a draft campaign to its terminal status. It returns
	// ErrNotDraft if the campaign is no longer a draft.
	MarkSent(ctx context.Context, id primitive.ObjectID, status models.CampaignStatus, sentAt time.Time, stats models.CampaignStats) error
}

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	InsertMany(ctx context.Context, messages []*models.Message) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	FindByCampaign(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.Message, error)
	CountByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error)
	CountByCampaignAndStatus(ctx context.Context, campaignID primitive.ObjectID, status models.MessageStatus) (int64, error)
	// FindLatestByUser returns the newest messages sent by userID
	FindLatestByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Message, error)
	// MarkRead flags the message as read if it belongs to userID
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Message, error)
}
