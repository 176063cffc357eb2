package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageRepository is an in-memory repositories.MessageRepository. Messages
// are kept in insertion order.
type MessageRepository struct {
	mu       sync.RWMutex
	messages []models.Message
	index    map[primitive.ObjectID]int
}

// NewMessageRepository creates an empty message repository
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{index: make(map[primitive.ObjectID]int)}
}

func (r *MessageRepository) InsertMany(ctx context.Context, messages []*models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range messages {
		if m.ID.IsZero() {
			m.ID = primitive.NewObjectID()
		}
		if _, exists := r.index[m.ID]; exists {
			return repositories.ErrDuplicate
		}
	}
	for _, m := range messages {
		r.index[m.ID] = len(r.messages)
		r.messages = append(r.messages, *m)
	}
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	m := r.messages[i]
	return &m, nil
}

func (r *MessageRepository) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID, pageNum, limit int) ([]*models.Message, error) {
	return page(r.filter(func(m *models.Message) bool { return m.CampaignID == campaignID }), pageNum, limit), nil
}

func (r *MessageRepository) CountByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return int64(len(r.filter(func(m *models.Message) bool { return m.CampaignID == campaignID }))), nil
}

func (r *MessageRepository) CountByCampaignAndStatus(ctx context.Context, campaignID primitive.ObjectID, status models.MessageStatus) (int64, error) {
	matched := r.filter(func(m *models.Message) bool {
		return m.CampaignID == campaignID && m.Status == status
	})
	return int64(len(matched)), nil
}

func (r *MessageRepository) FindLatestByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Message, error) {
	matched := r.filter(func(m *models.Message) bool { return m.UserID == userID })
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok || r.messages[i].UserID != userID {
		return nil, repositories.ErrNotFound
	}
	r.messages[i].Read = true
	m := r.messages[i]
	return &m, nil
}

func (r *MessageRepository) filter(keep func(m *models.Message) bool) []*models.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*models.Message{}
	for i := range r.messages {
		if keep(&r.messages[i]) {
			m := r.messages[i]
			out = append(out, &m)
		}
	}
	return out
}
