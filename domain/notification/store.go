package notification

import "context"

// Store persists notifications. Records are appended by transitions and only
// their delivery status changes afterwards.
type Store interface {
	// Append persists notifications in order.
	Append(ctx context.Context, ns ...*Notification) error

	// Get retrieves a notification by ID.
	Get(ctx context.Context, id string) (*Notification, error)

	// List returns notifications matching the filter in append order.
	List(ctx context.Context, filter ListFilter) ([]*Notification, error)

	// UpdateStatus stores the delivery fields of an existing notification.
	UpdateStatus(ctx context.Context, n *Notification) error

	// Discard removes notifications. Only compensation of a failed
	// transition uses it.
	Discard(ctx context.Context, ids ...string) error
}

// ListFilter filters notification queries.
type ListFilter struct {
	ProposalID string
	StageID    string
	Status     []Status
	Limit      int
}

// Matches reports whether a notification satisfies the filter.
func (f ListFilter) Matches(n *Notification) bool {
	if f.ProposalID != "" && n.ProposalID != f.ProposalID {
		return false
	}
	if f.StageID != "" && n.StageID != f.StageID {
		return false
	}
	if len(f.Status) > 0 {
		for _, s := range f.Status {
			if n.Status == s {
				return true
			}
		}
		return false
	}
	return true
}
