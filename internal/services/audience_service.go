package services

import (
	"context"
	"fmt"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"github.com/minicrm/backend/internal/segments"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AudienceStatistics summarises a resolved audience
type AudienceStatistics struct {
	TotalCustomers int     `json:"totalCustomers"`
	TotalVisits    int     `json:"totalVisits"`
	TotalSpent     float64 `json:"totalSpent"`
	AverageVisits  float64 `json:"averageVisits"`
	AverageSpent   float64 `json:"averageSpent"`
}

// Audience is a concrete list of customers with their statistics
type Audience struct {
	Customers  []*models.Customer `json:"customers"`
	Statistics AudienceStatistics `json:"statistics"`
}

// IDs returns the customer ids in audience order
func (a *Audience) IDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(a.Customers))
	for i, c := range a.Customers {
		ids[i] = c.ID
	}
	return ids
}

// AudienceResolver turns segment rules or a campaign into an audience. Every
// returned customer carries a TotalSpent freshly summed from delivered orders.
type AudienceResolver struct {
	customerRepo repositories.CustomerRepository
	orderRepo    repositories.OrderRepository
	segmentRepo  repositories.SegmentRepository
	log          *zap.Logger
}

// NewAudienceResolver creates a new AudienceResolver
func NewAudienceResolver(
	customerRepo repositories.CustomerRepository,
	orderRepo repositories.OrderRepository,
	segmentRepo repositories.SegmentRepository,
	log *zap.Logger,
) *AudienceResolver {
	return &AudienceResolver{
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		segmentRepo:  segmentRepo,
		log:          log,
	}
}

// Resolve returns the customers matching rules under op, ordered by id
func (r *AudienceResolver) Resolve(ctx context.Context, rules []models.SegmentRule, op models.GroupOperator) (*Audience, error) {
	if unknown := segments.UnknownOperators(rules); len(unknown) > 0 {
		r.log.Warn("segment rules contain unsupported operators; those rules match no customers",
			zap.Strings("operators", unknown))
	}

	customers, err := r.customerRepo.FindMatching(ctx, segments.Compile(rules, op))
	if err != nil {
		return nil, fmt.Errorf("failed to find matching customers: %w", err)
	}
	return r.enrich(ctx, customers)
}

// ResolveSegment resolves the audience of a stored segment
func (r *AudienceResolver) ResolveSegment(ctx context.Context, segmentID primitive.ObjectID) (*Audience, error) {
	segment, err := r.segmentRepo.FindByID(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", segmentID.Hex(), err)
	}
	return r.Resolve(ctx, segment.Rules, segment.RuleOperator)
}

// ResolveCampaign returns the campaign's fixed customer list when it has one,
// in stored order and skipping customers that no longer exist. Otherwise it
// resolves the campaign's segment. The bool reports whether the segment was
// evaluated.
func (r *AudienceResolver) ResolveCampaign(ctx context.Context, campaign *models.Campaign) (*Audience, bool, error) {
	if len(campaign.Customers) == 0 {
		audience, err := r.ResolveSegment(ctx, campaign.SegmentID)
		return audience, true, err
	}

	found, err := r.customerRepo.FindByIDs(ctx, campaign.Customers)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load campaign customers: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.Customer, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	ordered := make([]*models.Customer, 0, len(found))
	seen := make(map[primitive.ObjectID]bool, len(found))
	for _, id := range campaign.Customers {
		if c, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			ordered = append(ordered, c)
		}
	}

	audience, err := r.enrich(ctx, ordered)
	return audience, false, err
}

func (r *AudienceResolver) enrich(ctx context.Context, customers []*models.Customer) (*Audience, error) {
	if customers == nil {
		customers = []*models.Customer{}
	}
	if err := r.refreshTotalSpent(ctx, customers); err != nil {
		return nil, err
	}
	return &Audience{Customers: customers, Statistics: summarize(customers)}, nil
}

// refreshTotalSpent overwrites TotalSpent with the delivered-order sum
func (r *AudienceResolver) refreshTotalSpent(ctx context.Context, customers []*models.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	sums, err := r.orderRepo.SumDeliveredByCustomer(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to sum delivered orders: %w", err)
	}
	for _, c := range customers {
		c.TotalSpent = sums[c.ID]
	}
	return nil
}

func summarize(customers []*models.Customer) AudienceStatistics {
	stats := AudienceStatistics{TotalCustomers: len(customers)}
	for _, c := range customers {
		stats.TotalVisits += c.Visits
		stats.TotalSpent += c.TotalSpent
	}
	if stats.TotalCustomers > 0 {
		stats.AverageVisits = float64(stats.TotalVisits) / float64(stats.TotalCustomers)
		stats.AverageSpent = stats.TotalSpent / float64(stats.TotalCustomers)
	}
	return stats
}
