package services

import "github.com/minicrm/backend/internal/models"

// StatsAccumulator keeps running delivery totals for one campaign send
type StatsAccumulator struct {
	stats models.CampaignStats
}

// NewStatsAccumulator starts a tally for an audience of the given size
func NewStatsAccumulator(totalAudience int) *StatsAccumulator {
	return &StatsAccumulator{stats: models.CampaignStats{TotalAudience: totalAudience}}
}

// Add folds a batch into the totals and returns the cumulative stats
func (a *StatsAccumulator) Add(batch BatchResult) models.CampaignStats {
	for _, o := range batch.Outcomes {
		a.stats.Sent++
		if o.Success {
			a.stats.Delivered++
		} else {
			a.stats.Failed++
		}
	}
	return a.stats
}

// Stats returns the cumulative stats so far
func (a *StatsAccumulator) Stats() models.CampaignStats {
	return a.stats
}
