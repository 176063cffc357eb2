package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EngagementEstimator estimates opens and clicks from the delivered count
type EngagementEstimator interface {
	Estimate(delivered int) (opened, clicked int)
}

// RatioEstimator applies fixed open and click ratios to the delivered count
type RatioEstimator struct {
	Open  float64
	Click float64
}

func (e RatioEstimator) Estimate(delivered int) (int, int) {
	return int(math.Floor(float64(delivered) * e.Open)), int(math.Floor(float64(delivered) * e.Click))
}

// EngagementScheduler runs a one-shot engagement update some time after a
// campaign completes. Jobs run outside any request and log their failures.
type EngagementScheduler struct {
	campaignRepo repositories.CampaignRepository
	messageRepo  repositories.MessageRepository
	estimator    EngagementEstimator
	delay        time.Duration
	jobTimeout   time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	timers  map[primitive.ObjectID]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewEngagementScheduler creates a scheduler firing delay after Schedule
func NewEngagementScheduler(
	campaignRepo repositories.CampaignRepository,
	messageRepo repositories.MessageRepository,
	estimator EngagementEstimator,
	delay time.Duration,
	log *zap.Logger,
) *EngagementScheduler {
	return &EngagementScheduler{
		campaignRepo: campaignRepo,
		messageRepo:  messageRepo,
		estimator:    estimator,
		delay:        delay,
		jobTimeout:   30 * time.Second,
		log:          log,
		timers:       make(map[primitive.ObjectID]*time.Timer),
	}
}

// Schedule arms the engagement job for a campaign. Scheduling the same
// campaign again replaces the pending job.
func (s *EngagementScheduler) Schedule(campaignID primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if t, ok := s.timers[campaignID]; ok && t.Stop() {
		s.wg.Done()
	}

	s.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		if s.timers[campaignID] == timer {
			delete(s.timers, campaignID)
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		if err := s.Apply(ctx, campaignID); err != nil {
			s.log.Error("engagement update failed",
				zap.String("campaignId", campaignID.Hex()),
				zap.Error(err))
		}
	})
	s.timers[campaignID] = timer
}

// Pending returns the number of armed jobs
func (s *EngagementScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Apply updates opened and clicked for a campaign that is still completed,
// based on its delivered messages.
func (s *EngagementScheduler) Apply(ctx context.Context, campaignID primitive.ObjectID) error {
	campaign, err := s.campaignRepo.FindByID(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign.Status != models.CampaignStatusCompleted {
		return nil
	}

	delivered, err := s.messageRepo.CountByCampaignAndStatus(ctx, campaignID, models.MessageStatusDelivered)
	if err != nil {
		return fmt.Errorf("failed to count delivered messages: %w", err)
	}

	var stats models.CampaignStats
	if campaign.Stats != nil {
		stats = *campaign.Stats
	}
	stats.Opened, stats.Clicked = s.estimator.Estimate(int(delivered))

	if err := s.campaignRepo.UpdateStats(ctx, campaignID, stats); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	s.log.Info("updated engagement stats",
		zap.String("campaignId", campaignID.Hex()),
		zap.Int("opened", stats.Opened),
		zap.Int("clicked", stats.Clicked))
	return nil
}

// Stop cancels pending jobs and waits for running ones to finish
func (s *EngagementScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
