package audit

import (
	"context"
	"time"
)

// Repository defines the audit repository API
type Repository interface {
	// Get retrieves multiple entries following a filter, ordered by their timestamp (descending).
	// If limit <= 0, a default limit value of 10 is used.
	Get(ctx context.Context, filter *Filter, offset, limit uint64) ([]*Entry, uint64, error)

	// Create stores a new entry
	Create(ctx context.Context, entry *Entry) error

	// DeleteBefore deletes all entries recorded before the given time and returns how many were deleted
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Filter is used to query entries based on a filter
type Filter struct {
	Outcome *Outcome
	UserID  *string
}

// Matches reports whether the given entry matches the filter
func (filter *Filter) Matches(entry *Entry) bool {
	if filter == nil {
		return true
	}
	if filter.Outcome != nil && entry.Outcome != *filter.Outcome {
		return false
	}
	if filter.UserID != nil && (entry.UserID == nil || *entry.UserID != *filter.UserID) {
		return false
	}
	return true
}
