package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minicrm/backend/internal/locks"
	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories/memory"
	"github.com/minicrm/backend/pkg/vendorapi"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	store      *memory.Store
	gateway    *vendorapi.MockGateway
	locker     *locks.LocalLocker
	engagement *EngagementScheduler
	resolver   *AudienceResolver
	customers  *CustomerServiceImpl
	orders     *OrderServiceImpl
	segments   *SegmentServiceImpl
	campaigns  *CampaignServiceImpl
	messages   *MessageServiceImpl
}

func newFixture(t *testing.T, decider OutcomeDecider) *fixture {
	t.Helper()
	log := zap.NewNop()
	store := memory.NewStore()

	f := &fixture{
		store:   store,
		gateway: vendorapi.NewMockGateway("TEST"),
		locker:  locks.NewLocalLocker(),
	}
	f.engagement = NewEngagementScheduler(store.Campaigns, store.Messages, RatioEstimator{Open: 0.8, Click: 0.4}, time.Hour, log)
	t.Cleanup(f.engagement.Stop)

	f.resolver = NewAudienceResolver(store.Customers, store.Orders, store.Segments, log)
	f.customers = NewCustomerService(store.Customers, store.Orders, log)
	f.orders = NewOrderService(store.Orders, store.Customers, log)
	f.segments = NewSegmentService(store.Segments, store.Customers, f.resolver, log)
	f.campaigns = NewCampaignService(store.Campaigns, store.Segments, store.Messages, f.resolver, SendPipeline{
		Dispatcher: NewDispatcher(10, time.Second, log),
		Gateway:    f.gateway,
		Decider:    decider,
		Locker:     f.locker,
		LockTTL:    time.Minute,
		Engagement: f.engagement,
	}, log)
	f.messages = NewMessageService(store.Messages, log)
	return f
}

func (f *fixture) addCustomers(t *testing.T, visits ...int) []*models.Customer {
	t.Helper()
	out := make([]*models.Customer, 0, len(visits))
	for _, v := range visits {
		c := &models.Customer{
			Name:   "Customer",
			Email:  fmt.Sprintf("%s@example.com", primitive.NewObjectID().Hex()),
			Visits: v,
		}
		require.NoError(t, f.store.Customers.Create(context.Background(), c))
		out = append(out, c)
	}
	return out
}

func (f *fixture) addSegment(t *testing.T, rules ...models.SegmentRule) *models.Segment {
	t.Helper()
	segment, err := f.segments.CreateSegment(context.Background(), SegmentInput{Name: "segment", Rules: rules}, primitive.NewObjectID())
	require.NoError(t, err)
	return segment
}

func (f *fixture) addCampaign(t *testing.T, segment *models.Segment, customers ...string) *models.Campaign {
	t.Helper()
	campaign, err := f.campaigns.CreateCampaign(context.Background(), CampaignInput{
		Name:      "Spring sale",
		SegmentID: segment.ID.Hex(),
		Message:   "Hi there, 10% off this week",
		Customers: customers,
	})
	require.NoError(t, err)
	return campaign
}

func testAddress() models.Address {
	return models.Address{Street: "1 Main St", City: "Lagos", State: "LA", ZipCode: "100001", Country: "NG"}
}
