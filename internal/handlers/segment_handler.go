package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minicrm/backend/internal/services"
	"go.uber.org/zap"
)

// SegmentHandler handles segment-related HTTP requests
type SegmentHandler struct {
	segmentService services.SegmentService
	log            *zap.Logger
}

// NewSegmentHandler creates a new SegmentHandler
func NewSegmentHandler(segmentService services.SegmentService, log *zap.Logger) *SegmentHandler {
	return &SegmentHandler{segmentService: segmentService, log: log}
}

// ListSegments handles GET /segments
func (h *SegmentHandler) ListSegments(c *gin.Context) {
	page, limit := pageParams(c)
	list, pagination, err := h.segmentService.ListSegments(c, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": list, "pagination": pagination})
}

// GetSegment handles GET /segments/:id
func (h *SegmentHandler) GetSegment(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "segment")
	if !ok {
		return
	}
	segment, err := h.segmentService.GetSegment(c, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, segment)
}

// CreateSegment handles POST /segments
func (h *SegmentHandler) CreateSegment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.SegmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	segment, err := h.segmentService.CreateSegment(c, in, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, segment)
}

// UpdateSegment handles PUT /segments/:id
func (h *SegmentHandler) UpdateSegment(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "segment")
	if !ok {
		return
	}
	var in services.SegmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	segment, err := h.segmentService.UpdateSegment(c, id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, segment)
}

// DeleteSegment handles DELETE /segments/:id
func (h *SegmentHandler) DeleteSegment(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "segment")
	if !ok {
		return
	}
	if err := h.segmentService.DeleteSegment(c, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Segment deleted successfully"})
}

// PreviewSegment handles POST /segments/preview
func (h *SegmentHandler) PreviewSegment(c *gin.Context) {
	var in services.PreviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	count, err := h.segmentService.PreviewSegment(c, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// SegmentCustomers handles GET /segments/:id/customers
func (h *SegmentHandler) SegmentCustomers(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "segment")
	if !ok {
		return
	}
	audience, err := h.segmentService.SegmentCustomers(c, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, audience)
}
