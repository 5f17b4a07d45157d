package stage

import (
	"context"
	"time"
)

// Store persists stage instances.
type Store interface {
	// Save persists a new stage instance.
	Save(ctx context.Context, s *Instance) error

	// Get retrieves a stage instance by ID.
	Get(ctx context.Context, id string) (*Instance, error)

	// List returns instances matching the filter, ordered by EnteredAt
	// ascending (ties broken by ID).
	List(ctx context.Context, filter ListFilter) ([]*Instance, error)

	// Update replaces an existing stage instance.
	Update(ctx context.Context, s *Instance) error

	// Delete removes a stage instance. Only administrative removal and
	// compensation of a failed transition use it.
	Delete(ctx context.Context, id string) error
}

// ListFilter filters stage queries.
type ListFilter struct {
	// ProposalID filters by proposal.
	ProposalID string

	// Status filters by status.
	Status []Status

	// DeadlineBefore keeps instances whose deadline is strictly before this time.
	DeadlineBefore time.Time

	// Limit is the maximum number of results.
	Limit int
}

// Matches reports whether an instance satisfies the filter.
func (f ListFilter) Matches(s *Instance) bool {
	if f.ProposalID != "" && s.ProposalID != f.ProposalID {
		return false
	}
	if len(f.Status) > 0 {
		found := false
		for _, st := range f.Status {
			if s.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.DeadlineBefore.IsZero() {
		if s.Deadline == nil || !s.Deadline.Before(f.DeadlineBefore) {
			return false
		}
	}
	return true
}
