package memory

import (
	"context"
	"sync"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SegmentRepository is an in-memory repositories.SegmentRepository
type SegmentRepository struct {
	mu       sync.RWMutex
	segments map[primitive.ObjectID]models.Segment
}

// NewSegmentRepository creates an empty segment repository
func NewSegmentRepository() *SegmentRepository {
	return &SegmentRepository{segments: make(map[primitive.ObjectID]models.Segment)}
}

func (r *SegmentRepository) Create(ctx context.Context, segment *models.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if segment.ID.IsZero() {
		segment.ID = primitive.NewObjectID()
	}
	segment.CreatedAt = time.Now()
	segment.UpdatedAt = segment.CreatedAt
	r.segments[segment.ID] = cloneSegment(*segment)
	return nil
}

func (r *SegmentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.segments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneSegment(s)
	return &out, nil
}

func (r *SegmentRepository) FindAll(ctx context.Context, pageNum, limit int) ([]*models.Segment, error) {
	r.mu.RLock()
	all := make([]*models.Segment, 0, len(r.segments))
	for _, s := range r.segments {
		ss := cloneSegment(s)
		all = append(all, &ss)
	}
	r.mu.RUnlock()

	newestFirst(all, func(s *models.Segment) (time.Time, primitive.ObjectID) { return s.CreatedAt, s.ID })
	return page(all, pageNum, limit), nil
}

func (r *SegmentRepository) Update(ctx context.Context, segment *models.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.segments[segment.ID]; !ok {
		return repositories.ErrNotFound
	}
	segment.UpdatedAt = time.Now()
	r.segments[segment.ID] = cloneSegment(*segment)
	return nil
}

func (r *SegmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.segments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.segments, id)
	return nil
}

func (r *SegmentRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.segments)), nil
}

func cloneSegment(s models.Segment) models.Segment {
	s.Rules = append([]models.SegmentRule(nil), s.Rules...)
	return s
}
