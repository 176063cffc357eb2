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

const segmentsCollection = "segments"

// SegmentRepository implements the repositories.SegmentRepository interface
type SegmentRepository struct {
	collection *mongo.Collection
}

// NewSegmentRepository creates a new SegmentRepository
func NewSegmentRepository(db *mongo.Database) repositories.SegmentRepository {
	return &SegmentRepository{
		collection: db.Collection(segmentsCollection),
	}
}

// Create creates a new segment
func (r *SegmentRepository) Create(ctx context.Context, segment *models.Segment) error {
	if segment.ID.IsZero() {
		segment.ID = primitive.NewObjectID()
	}
	segment.CreatedAt = time.Now()
	segment.UpdatedAt = segment.CreatedAt
	_, err := r.collection.InsertOne(ctx, segment)
	return translateError(err)
}

// FindByID finds a segment by ID
func (r *SegmentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Segment, error) {
	var segment models.Segment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&segment); err != nil {
		return nil, translateError(err)
	}
	return &segment, nil
}

// FindAll finds all segments with pagination
func (r *SegmentRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Segment, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, pageOptions(page, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	segments := []*models.Segment{}
	if err := cursor.All(ctx, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// Update replaces a segment
func (r *SegmentRepository) Update(ctx context.Context, segment *models.Segment) error {
	segment.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": segment.ID}, segment)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete deletes a segment
func (r *SegmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Count counts all segments
func (r *SegmentRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
