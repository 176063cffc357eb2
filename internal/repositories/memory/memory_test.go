package memory

import (
	"context"
	"testing"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"github.com/minicrm/backend/internal/segments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCustomerRepository_UniqueEmail(t *testing.T) {
	repo := NewCustomerRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Customer{Name: "Ada", Email: "ada@example.com"}))
	err := repo.Create(ctx, &models.Customer{Name: "Ada 2", Email: "ADA@example.com"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
}

func TestCustomerRepository_FindMatchingOrdersByID(t *testing.T) {
	repo := NewCustomerRepository()
	ctx := context.Background()

	for _, visits := range []int{5, 15, 20} {
		require.NoError(t, repo.Create(ctx, &models.Customer{
			Name:   "c",
			Email:  primitive.NewObjectID().Hex() + "@example.com",
			Visits: visits,
		}))
	}

	pred := segments.Compile([]models.SegmentRule{{Field: "visits", Operator: models.OperatorGreaterThan, Value: "10"}}, models.GroupAnd)
	matched, err := repo.FindMatching(ctx, pred)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, 15, matched[0].Visits)
	assert.Equal(t, 20, matched[1].Visits)

	n, err := repo.CountMatching(ctx, pred)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCustomerRepository_ReturnsCopies(t *testing.T) {
	repo := NewCustomerRepository()
	ctx := context.Background()
	c := &models.Customer{Name: "Ada", Email: "ada@example.com", Address: &models.Address{City: "Lagos"}}
	require.NoError(t, repo.Create(ctx, c))

	c.Address.City = "Abuja"
	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lagos", got.Address.City)
}

func TestOrderRepository_SumDeliveredByCustomer(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	orders := []*models.Order{
		{CustomerID: a, OrderNumber: "ORD-1", TotalAmount: 100, Status: models.OrderStatusDelivered},
		{CustomerID: a, OrderNumber: "ORD-2", TotalAmount: 50, Status: models.OrderStatusDelivered},
		{CustomerID: a, OrderNumber: "ORD-3", TotalAmount: 999, Status: models.OrderStatusPending},
		{CustomerID: b, OrderNumber: "ORD-4", TotalAmount: 10, Status: models.OrderStatusCancelled},
	}
	for _, o := range orders {
		require.NoError(t, repo.Create(ctx, o))
	}

	sums, err := repo.SumDeliveredByCustomer(ctx, []primitive.ObjectID{a, b})
	require.NoError(t, err)
	assert.Equal(t, map[primitive.ObjectID]float64{a: 150}, sums)

	n, err := repo.DeleteByCustomer(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCampaignRepository_MarkSentOnlyOnce(t *testing.T) {
	repo := NewCampaignRepository()
	ctx := context.Background()
	c := &models.Campaign{Name: "Spring", Status: models.CampaignStatusDraft}
	require.NoError(t, repo.Create(ctx, c))

	now := time.Now()
	require.NoError(t, repo.MarkSent(ctx, c.ID, models.CampaignStatusCompleted, now, models.CampaignStats{Sent: 3}))
	err := repo.MarkSent(ctx, c.ID, models.CampaignStatusFailed, now, models.CampaignStats{})
	assert.ErrorIs(t, err, repositories.ErrNotDraft)

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 3, got.Stats.Sent)

	assert.ErrorIs(t, repo.MarkSent(ctx, primitive.NewObjectID(), models.CampaignStatusCompleted, now, models.CampaignStats{}), repositories.ErrNotFound)
}

func TestCampaignRepository_WritesOnlyDrafts(t *testing.T) {
	repo := NewCampaignRepository()
	ctx := context.Background()
	c := &models.Campaign{Name: "Spring", Status: models.CampaignStatusDraft}
	require.NoError(t, repo.Create(ctx, c))

	c.Name = "Summer"
	require.NoError(t, repo.Update(ctx, c))
	require.NoError(t, repo.MarkSent(ctx, c.ID, models.CampaignStatusCompleted, time.Now(), models.CampaignStats{Sent: 1}))

	stale := *c
	stale.Status = models.CampaignStatusDraft
	stale.Name = "Autumn"
	assert.ErrorIs(t, repo.Update(ctx, &stale), repositories.ErrNotDraft)
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), repositories.ErrNotDraft)

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, "Summer", got.Name)

	missing := &models.Campaign{ID: primitive.NewObjectID()}
	assert.ErrorIs(t, repo.Update(ctx, missing), repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, missing.ID), repositories.ErrNotFound)
}

func TestMessageRepository(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()
	user, other := primitive.NewObjectID(), primitive.NewObjectID()
	campaign := primitive.NewObjectID()
	base := time.Now()

	msgs := []*models.Message{
		{UserID: user, CampaignID: campaign, Status: models.MessageStatusDelivered, Timestamp: base},
		{UserID: user, CampaignID: campaign, Status: models.MessageStatusFailed, Timestamp: base.Add(time.Second)},
		{UserID: other, CampaignID: primitive.NewObjectID(), Status: models.MessageStatusDelivered, Timestamp: base},
	}
	require.NoError(t, repo.InsertMany(ctx, msgs))

	delivered, err := repo.CountByCampaignAndStatus(ctx, campaign, models.MessageStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, int64(1), delivered)

	latest, err := repo.FindLatestByUser(ctx, user, 50)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, msgs[1].ID, latest[0].ID)

	_, err = repo.MarkRead(ctx, msgs[0].ID, other)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	read, err := repo.MarkRead(ctx, msgs[0].ID, user)
	require.NoError(t, err)
	assert.True(t, read.Read)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, page(items, 1, 2))
	assert.Equal(t, []int{5}, page(items, 3, 2))
	assert.Equal(t, []int{}, page(items, 4, 2))
	assert.Equal(t, []int{1, 2}, page(items, 0, 2))
}
