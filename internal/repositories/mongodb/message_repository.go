package mongodb

import (
	"context"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

// MessageRepository implements the repositories.MessageRepository interface
type MessageRepository struct {
	collection *mongo.Collection
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *mongo.Database) repositories.MessageRepository {
	return &MessageRepository{
		collection: db.Collection(messagesCollection),
	}
}

// InsertMany stores a batch of messages
func (r *MessageRepository) InsertMany(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	docs := make([]interface{}, len(messages))
	for i, m := range messages {
		if m.ID.IsZero() {
			m.ID = primitive.NewObjectID()
		}
		docs[i] = m
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return translateError(err)
}

// FindByID finds a message by ID
func (r *MessageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message); err != nil {
		return nil, translateError(err)
	}
	return &message, nil
}

// FindByCampaign finds messages of a campaign with pagination
func (r *MessageRepository) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"campaignId": campaignID}, opts)
}

// CountByCampaign counts messages of a campaign
func (r *MessageRepository) CountByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"campaignId": campaignID})
}

// CountByCampaignAndStatus counts messages of a campaign in one status
func (r *MessageRepository) CountByCampaignAndStatus(ctx context.Context, campaignID primitive.ObjectID, status models.MessageStatus) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"campaignId": campaignID, "status": status})
}

// FindLatestByUser finds the newest messages sent by a user
func (r *MessageRepository) FindLatestByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Message, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, bson.M{"userId": userID}, opts)
}

// MarkRead marks a message owned by userID as read
func (r *MessageRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Message, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var message models.Message
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"read": true}},
		opts,
	).Decode(&message)
	if err != nil {
		return nil, translateError(err)
	}
	return &message, nil
}

func (r *MessageRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*models.Message, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []*models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
