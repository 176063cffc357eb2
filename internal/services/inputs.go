package services

import (
	"time"

	"github.com/minicrm/backend/internal/models"
)

// CustomerInput is the payload for creating a customer
type CustomerInput struct {
	Name    string          `json:"name" binding:"required,min=2"`
	Email   string          `json:"email" binding:"required,email"`
	Phone   string          `json:"phone"`
	Visits  *int            `json:"visits" binding:"omitempty,min=0"`
	Address *models.Address `json:"address"`
}

// CustomerUpdateInput is the payload for updating a customer; nil fields are left unchanged
type CustomerUpdateInput struct {
	Name    *string         `json:"name" binding:"omitempty,min=2"`
	Email   *string         `json:"email" binding:"omitempty,email"`
	Phone   *string         `json:"phone"`
	Visits  *int            `json:"visits" binding:"omitempty,min=0"`
	Address *models.Address `json:"address"`
}

// OrderInput is the payload for creating or replacing an order
type OrderInput struct {
	CustomerID      string             `json:"customerId" binding:"required"`
	Items           []models.OrderItem `json:"items" binding:"required,min=1,dive"`
	ShippingAddress models.Address     `json:"shippingAddress" binding:"required"`
	Status          models.OrderStatus `json:"status"`
}

// SegmentInput is the payload for creating or updating a segment
type SegmentInput struct {
	Name         string               `json:"name" binding:"required"`
	Description  string               `json:"description"`
	Rules        []models.SegmentRule `json:"rules"`
	RuleOperator models.GroupOperator `json:"ruleOperator"`
}

// PreviewInput is the payload for counting a rule set's audience
type PreviewInput struct {
	Rules        []models.SegmentRule `json:"rules"`
	RuleOperator models.GroupOperator `json:"ruleOperator"`
}

// CampaignInput is the payload for creating or updating a campaign. A nil
// Customers leaves the audience to the segment.
type CampaignInput struct {
	Name         string                `json:"name" binding:"required"`
	SegmentID    string                `json:"segmentId" binding:"required"`
	Message      string                `json:"message" binding:"required"`
	ScheduledFor *time.Time            `json:"scheduledFor"`
	Status       models.CampaignStatus `json:"status"`
	Customers    []string              `json:"customers"`
}
