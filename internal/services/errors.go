package services

import (
	"errors"
	"strings"

	"github.com/minicrm/backend/internal/repositories"
)

var (
	// ErrNotFound is returned when the requested entity does not exist
	ErrNotFound = repositories.ErrNotFound
	// ErrDuplicate is returned when a unique field is already in use
	ErrDuplicate = repositories.ErrDuplicate
	// ErrCampaignAlreadySent is returned when sending a campaign that has
	// already reached a terminal status
	ErrCampaignAlreadySent = errors.New("campaign has already been sent")
	// ErrCampaignLocked is returned when a send or edit of the same campaign
	// is in progress
	ErrCampaignLocked = errors.New("campaign is being sent or modified, try again later")
	// ErrEmptyAudience is returned when a campaign resolves to no customers
	ErrEmptyAudience = errors.New("no customers found for this campaign or its segment")
	// ErrCampaignImmutable is returned when editing or deleting a sent campaign
	ErrCampaignImmutable = errors.New("completed campaigns cannot be modified")
)

// ValidationError carries one message per invalid input
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, ", ")
}

func newValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}
