package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignService services.CampaignService
	log             *zap.Logger
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(campaignService services.CampaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, log: log}
}

// sentCampaign is the campaign summary returned by the send endpoint
type sentCampaign struct {
	ID      primitive.ObjectID    `json:"_id"`
	Name    string                `json:"name"`
	Status  models.CampaignStatus `json:"status"`
	SentAt  *time.Time            `json:"sentAt"`
	Stats   *models.CampaignStats `json:"stats"`
	Message string                `json:"message"`
}

// ListCampaigns handles GET /campaigns
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	page, limit := pageParams(c)
	campaigns, pagination, err := h.campaignService.ListCampaigns(c, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "pagination": pagination})
}

// GetCampaign handles GET /campaigns/:id
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "campaign")
	if !ok {
		return
	}
	campaign, err := h.campaignService.GetCampaign(c, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": campaign})
}

// CreateCampaign handles POST /campaigns
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var in services.CampaignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	campaign, err := h.campaignService.CreateCampaign(c, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": campaign})
}

// UpdateCampaign handles PUT /campaigns/:id
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "campaign")
	if !ok {
		return
	}
	var in services.CampaignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	campaign, err := h.campaignService.UpdateCampaign(c, id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": campaign})
}

// DeleteCampaign handles DELETE /campaigns/:id
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "campaign")
	if !ok {
		return
	}
	if err := h.campaignService.DeleteCampaign(c, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Campaign deleted successfully"})
}

// CampaignCustomers handles GET /campaigns/:id/customers
func (h *CampaignHandler) CampaignCustomers(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "campaign")
	if !ok {
		return
	}
	audience, err := h.campaignService.CampaignCustomers(c, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": audience})
}

// SendCampaign handles POST /campaigns/:id/send
func (h *CampaignHandler) SendCampaign(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "campaign")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.campaignService.SendCampaign(c, id, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	campaign := result.Campaign
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"campaign": sentCampaign{
				ID:      campaign.ID,
				Name:    campaign.Name,
				Status:  campaign.Status,
				SentAt:  campaign.SentAt,
				Stats:   campaign.Stats,
				Message: campaign.Message,
			},
		},
	})
}

// CampaignMessages handles GET /campaigns/:id/messages
func (h *CampaignHandler) CampaignMessages(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "campaign")
	if !ok {
		return
	}
	page, limit := pageParams(c)
	messages, pagination, err := h.campaignService.CampaignMessages(c, id, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "pagination": pagination})
}
