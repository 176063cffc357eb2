package mongodb

import (
	"context"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const campaignsCollection = "campaigns"

// CampaignRepository implements the repositories.CampaignRepository interface
type CampaignRepository struct {
	collection *mongo.Collection
}

// NewCampaignRepository creates a new CampaignRepository
func NewCampaignRepository(db *mongo.Database) repositories.CampaignRepository {
	return &CampaignRepository{
		collection: db.Collection(campaignsCollection),
	}
}

// Create creates a new campaign
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID.IsZero() {
		campaign.ID = primitive.NewObjectID()
	}
	if campaign.Customers == nil {
		campaign.Customers = []primitive.ObjectID{}
	}
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = campaign.CreatedAt
	_, err := r.collection.InsertOne(ctx, campaign)
	return translateError(err)
}

// FindByID finds a campaign by ID
func (r *CampaignRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&campaign); err != nil {
		return nil, translateError(err)
	}
	return &campaign, nil
}

// FindAll finds all campaigns with pagination, newest first
func (r *CampaignRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Campaign, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, pageOptions(page, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	campaigns := []*models.Campaign{}
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// Update replaces a draft campaign
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, draftFilter(campaign.ID), campaign)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return r.notDraft(ctx, campaign.ID)
	}
	return nil
}

// Delete deletes a draft campaign
func (r *CampaignRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, draftFilter(id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return r.notDraft(ctx, id)
	}
	return nil
}

func draftFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "status": models.CampaignStatusDraft}
}

// notDraft tells a missing campaign apart from one that has left draft
func (r *CampaignRepository) notDraft(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return repositories.ErrNotDraft
}

// Count counts all campaigns
func (r *CampaignRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// SetCustomers stores the resolved audience snapshot
func (r *CampaignRepository) SetCustomers(ctx context.Context, id primitive.ObjectID, customerIDs []primitive.ObjectID) error {
	return checkMatched(r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"customers": customerIDs, "updatedAt": time.Now()},
	}))
}

// UpdateStats overwrites the campaign stats
func (r *CampaignRepository) UpdateStats(ctx context.Context, id primitive.ObjectID, stats models.CampaignStats) error {
	return checkMatched(r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"stats": stats, "updatedAt": time.Now()},
	}))
}

// MarkSent sets the terminal status, guarded on the campaign still being a draft
func (r *CampaignRepository) MarkSent(ctx context.Context, id primitive.ObjectID, status models.CampaignStatus, sentAt time.Time, stats models.CampaignStats) error {
	res, err := r.collection.UpdateOne(ctx,
		draftFilter(id),
		bson.M{"$set": bson.M{
			"status":    status,
			"sentAt":    sentAt,
			"stats":     stats,
			"updatedAt": time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.notDraft(ctx, id)
	}
	return nil
}
