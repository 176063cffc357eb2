package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// IsTerminal reports whether the campaign has already been sent
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusFailed
}

// Campaign represents a single send of a message to a resolved audience
type Campaign struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id,omitempty"`
	Name         string               `bson:"name" json:"name"`
	SegmentID    primitive.ObjectID   `bson:"segmentId" json:"segmentId"`
	Message      string               `bson:"message" json:"message"`
	Customers    []primitive.ObjectID `bson:"customers" json:"customers"`
	Status       CampaignStatus       `bson:"status" json:"status"`
	ScheduledFor *time.Time           `bson:"scheduledFor,omitempty" json:"scheduledFor,omitempty"`
	SentAt       *time.Time           `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	Stats        *CampaignStats       `bson:"stats,omitempty" json:"stats,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// CampaignStats is the audience-level delivery rollup owned by a campaign
type CampaignStats struct {
	TotalAudience int `bson:"totalAudience" json:"totalAudience"`
	Sent          int `bson:"sent" json:"sent"`
	Delivered     int `bson:"delivered" json:"delivered"`
	Failed        int `bson:"failed" json:"failed"`
	Opened        int `bson:"opened" json:"opened"`
	Clicked       int `bson:"clicked" json:"clicked"`
}
