package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minicrm/backend/internal/locks"
	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"github.com/minicrm/backend/pkg/vendorapi"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var _ CampaignService = (*CampaignServiceImpl)(nil)

// campaignFailureReason is recorded on every message of a campaign that
// fails as a whole
const campaignFailureReason = "Campaign failed to send"

// SendPipeline groups the collaborators used by SendCampaign
type SendPipeline struct {
	Dispatcher *Dispatcher
	Gateway    vendorapi.Gateway
	Decider    OutcomeDecider
	Locker     locks.Locker
	LockTTL    time.Duration
	Engagement *EngagementScheduler
}

// SendResult is the outcome of a campaign send
type SendResult struct {
	Campaign *models.Campaign
	Batches  int
}

// CampaignServiceImpl handles campaign business logic
type CampaignServiceImpl struct {
	campaignRepo repositories.CampaignRepository
	segmentRepo  repositories.SegmentRepository
	messageRepo  repositories.MessageRepository
	resolver     *AudienceResolver
	send         SendPipeline
	log          *zap.Logger
	now          func() time.Time
}

// NewCampaignService creates a new CampaignServiceImpl
func NewCampaignService(
	campaignRepo repositories.CampaignRepository,
	segmentRepo repositories.SegmentRepository,
	messageRepo repositories.MessageRepository,
	resolver *AudienceResolver,
	send SendPipeline,
	log *zap.Logger,
) *CampaignServiceImpl {
	if send.LockTTL <= 0 {
		send.LockTTL = 5 * time.Minute
	}
	return &CampaignServiceImpl{
		campaignRepo: campaignRepo,
		segmentRepo:  segmentRepo,
		messageRepo:  messageRepo,
		resolver:     resolver,
		send:         send,
		log:          log,
		now:          time.Now,
	}
}

// ListCampaigns retrieves a page of campaigns
func (s *CampaignServiceImpl) ListCampaigns(ctx context.Context, page, limit int) ([]*models.Campaign, models.Pagination, error) {
	campaigns, err := s.campaignRepo.FindAll(ctx, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list campaigns: %w", err)
	}
	total, err := s.campaignRepo.Count(ctx)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return campaigns, models.NewPagination(page, limit, total), nil
}

// GetCampaign retrieves a campaign by ID
func (s *CampaignServiceImpl) GetCampaign(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("campaign %s: %w", id.Hex(), err)
	}
	return campaign, nil
}

// CreateCampaign stores a new draft campaign for an existing segment
func (s *CampaignServiceImpl) CreateCampaign(ctx context.Context, in CampaignInput) (*models.Campaign, error) {
	campaign := &models.Campaign{
		Status: models.CampaignStatusDraft,
		Stats:  &models.CampaignStats{},
	}
	if err := s.apply(ctx, campaign, in); err != nil {
		return nil, err
	}
	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return campaign, nil
}

// UpdateCampaign edits a draft campaign. It holds the send lock, and the
// write only applies while the stored campaign is still a draft.
func (s *CampaignServiceImpl) UpdateCampaign(ctx context.Context, id primitive.ObjectID, in CampaignInput) (*models.Campaign, error) {
	release, err := s.lockCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status.IsTerminal() {
		return nil, ErrCampaignImmutable
	}
	if err := s.apply(ctx, campaign, in); err != nil {
		return nil, err
	}
	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		if errors.Is(err, repositories.ErrNotDraft) {
			return nil, ErrCampaignImmutable
		}
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}
	return campaign, nil
}

// DeleteCampaign deletes a draft campaign
func (s *CampaignServiceImpl) DeleteCampaign(ctx context.Context, id primitive.ObjectID) error {
	release, err := s.lockCampaign(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status.IsTerminal() {
		return ErrCampaignImmutable
	}
	if err := s.campaignRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotDraft) {
			return ErrCampaignImmutable
		}
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}

// lockCampaign takes the per-campaign lock shared by send, update and delete
func (s *CampaignServiceImpl) lockCampaign(ctx context.Context, id primitive.ObjectID) (func(), error) {
	release, err := s.send.Locker.Acquire(ctx, "campaign:"+id.Hex(), s.send.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrLocked) {
			return nil, ErrCampaignLocked
		}
		return nil, fmt.Errorf("failed to lock campaign: %w", err)
	}
	return release, nil
}

// CampaignCustomers returns the audience the campaign would be sent to now
func (s *CampaignServiceImpl) CampaignCustomers(ctx context.Context, id primitive.ObjectID) (*Audience, error) {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	audience, _, err := s.resolver.ResolveCampaign(ctx, campaign)
	if err != nil {
		return nil, err
	}
	return audience, nil
}

// CampaignMessages retrieves a page of the messages produced by a campaign
func (s *CampaignServiceImpl) CampaignMessages(ctx context.Context, id primitive.ObjectID, page, limit int) ([]*models.Message, models.Pagination, error) {
	if _, err := s.GetCampaign(ctx, id); err != nil {
		return nil, models.Pagination{}, err
	}
	messages, err := s.messageRepo.FindByCampaign(ctx, id, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list campaign messages: %w", err)
	}
	total, err := s.messageRepo.CountByCampaign(ctx, id)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to count campaign messages: %w", err)
	}
	return messages, models.NewPagination(page, limit, total), nil
}

// SendCampaign sends a draft campaign to its audience once. The terminal
// status is written with a conditional update, so concurrent senders that
// slip past the lock still produce a single transition.
func (s *CampaignServiceImpl) SendCampaign(ctx context.Context, id, userID primitive.ObjectID) (*SendResult, error) {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status.IsTerminal() {
		return nil, ErrCampaignAlreadySent
	}

	release, err := s.lockCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	// re-read under the lock; a previous holder may have just finished
	campaign, err = s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status.IsTerminal() {
		return nil, ErrCampaignAlreadySent
	}

	audience, fromSegment, err := s.resolver.ResolveCampaign(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}
	if len(audience.Customers) == 0 {
		return nil, ErrEmptyAudience
	}
	if fromSegment {
		if err := s.campaignRepo.SetCustomers(ctx, id, audience.IDs()); err != nil {
			return nil, fmt.Errorf("failed to snapshot campaign customers: %w", err)
		}
	}

	gateway := s.send.Gateway
	status := models.CampaignStatusCompleted
	if !s.send.Decider.Succeeds() {
		gateway = vendorapi.RejectingGateway{Reason: campaignFailureReason}
		status = models.CampaignStatusFailed
	}

	recipients := make([]Recipient, len(audience.Customers))
	for i, c := range audience.Customers {
		recipients[i] = Recipient{CustomerID: c.ID, Address: c.Email}
	}

	s.log.Info("sending campaign",
		zap.String("campaignId", id.Hex()),
		zap.Int("audience", len(recipients)),
		zap.Int("batchSize", s.send.Dispatcher.BatchSize()),
		zap.Bool("failing", status == models.CampaignStatusFailed))

	tally := NewStatsAccumulator(len(recipients))
	batches, err := s.send.Dispatcher.Dispatch(ctx, recipients, campaign.Message, gateway,
		func(ctx context.Context, batch BatchResult) error {
			if err := s.messageRepo.InsertMany(ctx, s.batchMessages(campaign, userID, batch)); err != nil {
				return fmt.Errorf("failed to store messages: %w", err)
			}
			if err := s.campaignRepo.UpdateStats(ctx, id, tally.Add(batch)); err != nil {
				return fmt.Errorf("failed to update stats: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch campaign: %w", err)
	}

	if err := s.campaignRepo.MarkSent(ctx, id, status, s.now(), tally.Stats()); err != nil {
		if errors.Is(err, repositories.ErrNotDraft) {
			return nil, ErrCampaignAlreadySent
		}
		return nil, fmt.Errorf("failed to finalize campaign: %w", err)
	}

	if status == models.CampaignStatusCompleted && s.send.Engagement != nil {
		s.send.Engagement.Schedule(id)
	}

	sent, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := tally.Stats()
	s.log.Info("campaign sent",
		zap.String("campaignId", id.Hex()),
		zap.String("status", string(sent.Status)),
		zap.Int("batches", batches),
		zap.Int("delivered", stats.Delivered),
		zap.Int("failed", stats.Failed))
	return &SendResult{Campaign: sent, Batches: batches}, nil
}

func (s *CampaignServiceImpl) batchMessages(campaign *models.Campaign, userID primitive.ObjectID, batch BatchResult) []*models.Message {
	now := s.now()
	messages := make([]*models.Message, len(batch.Outcomes))
	for i, o := range batch.Outcomes {
		m := &models.Message{
			ID:           primitive.NewObjectID(),
			UserID:       userID,
			CustomerID:   o.CustomerID,
			CampaignID:   campaign.ID,
			CampaignName: campaign.Name,
			Message:      campaign.Message,
			Timestamp:    now,
			Status:       models.MessageStatusFailed,
		}
		if o.Success {
			m.Status = models.MessageStatusDelivered
		}
		if o.MessageID != "" {
			vendorID := o.MessageID
			m.VendorMessageID = &vendorID
		}
		if o.Error != "" {
			reason := o.Error
			m.Error = &reason
		}
		messages[i] = m
	}
	return messages
}

func (s *CampaignServiceImpl) apply(ctx context.Context, campaign *models.Campaign, in CampaignInput) error {
	var problems []string
	name := strings.TrimSpace(in.Name)
	if name == "" {
		problems = append(problems, "name is required")
	}
	body := strings.TrimSpace(in.Message)
	if body == "" {
		problems = append(problems, "message is required")
	}
	if in.Status != "" && in.Status != models.CampaignStatusDraft {
		problems = append(problems, fmt.Sprintf("status must be %q", models.CampaignStatusDraft))
	}
	segmentID, err := primitive.ObjectIDFromHex(in.SegmentID)
	if err != nil {
		problems = append(problems, "Invalid segment ID")
	}
	var customers []primitive.ObjectID
	if in.Customers != nil {
		customers = make([]primitive.ObjectID, 0, len(in.Customers))
		for _, hex := range in.Customers {
			cid, err := primitive.ObjectIDFromHex(hex)
			if err != nil {
				problems = append(problems, fmt.Sprintf("Invalid customer ID %q", hex))
				continue
			}
			customers = append(customers, cid)
		}
	}
	if len(problems) > 0 {
		return newValidationError(problems...)
	}

	if _, err := s.segmentRepo.FindByID(ctx, segmentID); err != nil {
		return fmt.Errorf("segment %s: %w", segmentID.Hex(), err)
	}

	switch {
	case customers != nil:
		campaign.Customers = customers
	case campaign.SegmentID != segmentID:
		campaign.Customers = nil
	}
	campaign.Name = name
	campaign.Message = body
	campaign.SegmentID = segmentID
	campaign.ScheduledFor = in.ScheduledFor
	return nil
}
