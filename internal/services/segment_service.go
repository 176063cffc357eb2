package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"github.com/minicrm/backend/internal/segments"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var _ SegmentService = (*SegmentServiceImpl)(nil)

// SegmentServiceImpl handles segment business logic
type SegmentServiceImpl struct {
	segmentRepo  repositories.SegmentRepository
	customerRepo repositories.CustomerRepository
	resolver     *AudienceResolver
	log          *zap.Logger
}

// NewSegmentService creates a new SegmentServiceImpl
func NewSegmentService(
	segmentRepo repositories.SegmentRepository,
	customerRepo repositories.CustomerRepository,
	resolver *AudienceResolver,
	log *zap.Logger,
) *SegmentServiceImpl {
	return &SegmentServiceImpl{
		segmentRepo:  segmentRepo,
		customerRepo: customerRepo,
		resolver:     resolver,
		log:          log,
	}
}

// ListSegments retrieves a page of segments
func (s *SegmentServiceImpl) ListSegments(ctx context.Context, page, limit int) ([]*models.Segment, models.Pagination, error) {
	list, err := s.segmentRepo.FindAll(ctx, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list segments: %w", err)
	}
	total, err := s.segmentRepo.Count(ctx)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to count segments: %w", err)
	}
	return list, models.NewPagination(page, limit, total), nil
}

// GetSegment retrieves a segment by ID
func (s *SegmentServiceImpl) GetSegment(ctx context.Context, id primitive.ObjectID) (*models.Segment, error) {
	segment, err := s.segmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", id.Hex(), err)
	}
	return segment, nil
}

// CreateSegment validates the rules, counts the audience and stores the segment
func (s *SegmentServiceImpl) CreateSegment(ctx context.Context, in SegmentInput, createdBy primitive.ObjectID) (*models.Segment, error) {
	segment := &models.Segment{CreatedBy: createdBy}
	if err := s.apply(ctx, segment, in); err != nil {
		return nil, err
	}
	if err := s.segmentRepo.Create(ctx, segment); err != nil {
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}
	s.log.Info("segment created",
		zap.String("segmentId", segment.ID.Hex()),
		zap.Int64("customerCount", segment.CustomerCount))
	return segment, nil
}

// UpdateSegment replaces the segment definition and recomputes its count
func (s *SegmentServiceImpl) UpdateSegment(ctx context.Context, id primitive.ObjectID, in SegmentInput) (*models.Segment, error) {
	segment, err := s.GetSegment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, segment, in); err != nil {
		return nil, err
	}
	if err := s.segmentRepo.Update(ctx, segment); err != nil {
		return nil, fmt.Errorf("failed to update segment: %w", err)
	}
	return segment, nil
}

// DeleteSegment deletes a segment
func (s *SegmentServiceImpl) DeleteSegment(ctx context.Context, id primitive.ObjectID) error {
	if err := s.segmentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("segment %s: %w", id.Hex(), err)
	}
	return nil
}

// PreviewSegment counts the customers the rules would select without storing anything
func (s *SegmentServiceImpl) PreviewSegment(ctx context.Context, in PreviewInput) (int64, error) {
	op := in.RuleOperator
	if op == "" {
		op = models.GroupAnd
	}
	if problems := segments.Validate(in.Rules, op); len(problems) > 0 {
		return 0, newValidationError(problems...)
	}
	count, err := s.customerRepo.CountMatching(ctx, segments.Compile(in.Rules, op))
	if err != nil {
		return 0, fmt.Errorf("failed to count matching customers: %w", err)
	}
	return count, nil
}

// SegmentCustomers resolves the current audience of a segment
func (s *SegmentServiceImpl) SegmentCustomers(ctx context.Context, id primitive.ObjectID) (*Audience, error) {
	audience, err := s.resolver.ResolveSegment(ctx, id)
	if err != nil {
		return nil, err
	}
	return audience, nil
}

func (s *SegmentServiceImpl) apply(ctx context.Context, segment *models.Segment, in SegmentInput) error {
	name := strings.TrimSpace(in.Name)
	op := in.RuleOperator
	if op == "" {
		op = models.GroupAnd
	}

	problems := segments.Validate(in.Rules, op)
	if name == "" {
		problems = append([]string{"name is required"}, problems...)
	}
	if len(problems) > 0 {
		return newValidationError(problems...)
	}

	count, err := s.customerRepo.CountMatching(ctx, segments.Compile(in.Rules, op))
	if err != nil {
		return fmt.Errorf("failed to count matching customers: %w", err)
	}

	segment.Name = name
	segment.Description = strings.TrimSpace(in.Description)
	segment.Rules = append([]models.SegmentRule{}, in.Rules...)
	segment.RuleOperator = op
	segment.CustomerCount = count
	return nil
}
