package services

import (
	"context"
	"fmt"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var _ MessageService = (*MessageServiceImpl)(nil)

// messageInboxSize is the number of messages returned by ListMessages
const messageInboxSize = 50

// MessageServiceImpl handles the caller's sent-message log
type MessageServiceImpl struct {
	messageRepo repositories.MessageRepository
	log         *zap.Logger
}

// NewMessageService creates a new MessageServiceImpl
func NewMessageService(messageRepo repositories.MessageRepository, log *zap.Logger) *MessageServiceImpl {
	return &MessageServiceImpl{messageRepo: messageRepo, log: log}
}

// ListMessages returns the newest messages sent by userID
func (s *MessageServiceImpl) ListMessages(ctx context.Context, userID primitive.ObjectID) ([]*models.Message, error) {
	messages, err := s.messageRepo.FindLatestByUser(ctx, userID, messageInboxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}

// MarkRead flags one of userID's messages as read
func (s *MessageServiceImpl) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Message, error) {
	message, err := s.messageRepo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", id.Hex(), err)
	}
	return message, nil
}
