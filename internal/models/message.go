package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageStatus is the delivery state of a single campaign message
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// Message is the append-only record of one (campaign, customer) delivery attempt
type Message struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	CustomerID      primitive.ObjectID `bson:"customerId" json:"customerId"`
	CampaignID      primitive.ObjectID `bson:"campaignId" json:"campaignId"`
	CampaignName    string             `bson:"campaignName" json:"campaignName"`
	Message         string             `bson:"message" json:"message"`
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
	Read            bool               `bson:"read" json:"read"`
	Status          MessageStatus      `bson:"status" json:"status"`
	VendorMessageID *string            `bson:"vendorMessageId" json:"vendorMessageId"`
	Error           *string            `bson:"error" json:"error"`
}
