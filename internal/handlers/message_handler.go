package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minicrm/backend/internal/services"
	"go.uber.org/zap"
)

// MessageHandler handles the caller's message log
type MessageHandler struct {
	messageService services.MessageService
	log            *zap.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService services.MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, log: log}
}

// ListMessages handles GET /messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messages, err := h.messageService.ListMessages(c, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// MarkRead handles PATCH /messages/:id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	id, ok := parseObjectID(c, "id", "message")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	message, err := h.messageService.MarkRead(c, id, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, message)
}
