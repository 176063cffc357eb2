// Package memory holds in-process implementations of the repositories,
// used for tests and for running without MongoDB.
package memory

import (
	"bytes"
	"sort"
	"time"

	"github.com/minicrm/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.CustomerRepository = (*CustomerRepository)(nil)
	_ repositories.OrderRepository    = (*OrderRepository)(nil)
	_ repositories.SegmentRepository  = (*SegmentRepository)(nil)
	_ repositories.CampaignRepository = (*CampaignRepository)(nil)
	_ repositories.MessageRepository  = (*MessageRepository)(nil)
)

// Store bundles one repository per collection over shared memory, so
// cascading operations see a consistent view.
type Store struct {
	Customers *CustomerRepository
	Orders    *OrderRepository
	Segments  *SegmentRepository
	Campaigns *CampaignRepository
	Messages  *MessageRepository
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		Customers: NewCustomerRepository(),
		Orders:    NewOrderRepository(),
		Segments:  NewSegmentRepository(),
		Campaigns: NewCampaignRepository(),
		Messages:  NewMessageRepository(),
	}
}

func lessID(a, b primitive.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// newestFirst sorts by creation time descending, then id descending
func newestFirst[T any](items []T, key func(T) (time.Time, primitive.ObjectID)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return lessID(idj, idi)
	})
}

// page returns the 1-based page of items
func page[T any](items []T, pageNum, limit int) []T {
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * limit
	if limit <= 0 || start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
