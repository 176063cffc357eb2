package memory

import (
	"context"
	"sync"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CampaignRepository is an in-memory repositories.CampaignRepository
type CampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[primitive.ObjectID]models.Campaign
}

// NewCampaignRepository creates an empty campaign repository
func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{campaigns: make(map[primitive.ObjectID]models.Campaign)}
}

func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if campaign.ID.IsZero() {
		campaign.ID = primitive.NewObjectID()
	}
	if campaign.Customers == nil {
		campaign.Customers = []primitive.ObjectID{}
	}
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = campaign.CreatedAt
	r.campaigns[campaign.ID] = cloneCampaign(*campaign)
	return nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.campaigns[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneCampaign(c)
	return &out, nil
}

func (r *CampaignRepository) FindAll(ctx context.Context, pageNum, limit int) ([]*models.Campaign, error) {
	r.mu.RLock()
	all := make([]*models.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		cc := cloneCampaign(c)
		all = append(all, &cc)
	}
	r.mu.RUnlock()

	newestFirst(all, func(c *models.Campaign) (time.Time, primitive.ObjectID) { return c.CreatedAt, c.ID })
	return page(all, pageNum, limit), nil
}

func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.campaigns[campaign.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if stored.Status != models.CampaignStatusDraft {
		return repositories.ErrNotDraft
	}
	campaign.UpdatedAt = time.Now()
	r.campaigns[campaign.ID] = cloneCampaign(*campaign)
	return nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.campaigns[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if stored.Status != models.CampaignStatusDraft {
		return repositories.ErrNotDraft
	}
	delete(r.campaigns, id)
	return nil
}

func (r *CampaignRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.campaigns)), nil
}

func (r *CampaignRepository) SetCustomers(ctx context.Context, id primitive.ObjectID, customerIDs []primitive.ObjectID) error {
	return r.modify(id, func(c *models.Campaign) error {
		c.Customers = append([]primitive.ObjectID{}, customerIDs...)
		return nil
	})
}

func (r *CampaignRepository) UpdateStats(ctx context.Context, id primitive.ObjectID, stats models.CampaignStats) error {
	return r.modify(id, func(c *models.Campaign) error {
		c.Stats = &stats
		return nil
	})
}

func (r *CampaignRepository) MarkSent(ctx context.Context, id primitive.ObjectID, status models.CampaignStatus, sentAt time.Time, stats models.CampaignStats) error {
	return r.modify(id, func(c *models.Campaign) error {
		if c.Status != models.CampaignStatusDraft {
			return repositories.ErrNotDraft
		}
		c.Status = status
		c.SentAt = &sentAt
		c.Stats = &stats
		return nil
	})
}

func (r *CampaignRepository) modify(id primitive.ObjectID, fn func(c *models.Campaign) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.campaigns[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := fn(&c); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	r.campaigns[id] = cloneCampaign(c)
	return nil
}

func cloneCampaign(c models.Campaign) models.Campaign {
	c.Customers = append([]primitive.ObjectID{}, c.Customers...)
	if c.Stats != nil {
		stats := *c.Stats
		c.Stats = &stats
	}
	if c.SentAt != nil {
		sentAt := *c.SentAt
		c.SentAt = &sentAt
	}
	if c.ScheduledFor != nil {
		scheduledFor := *c.ScheduledFor
		c.ScheduledFor = &scheduledFor
	}
	return c
}
