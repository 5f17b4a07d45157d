package history

import "context"

// Store persists history entries in append order.
type Store interface {
	// Append persists entries atomically, in order.
	Append(ctx context.Context, entries ...*Entry) error

	// List returns entries matching the filter in append order.
	List(ctx context.Context, filter ListFilter) ([]*Entry, error)

	// Discard removes entries by ID. It exists only to compensate a
	// transition whose later writes failed.
	Discard(ctx context.Context, ids ...string) error
}

// ListFilter filters history queries.
type ListFilter struct {
	// ProposalID filters by proposal.
	ProposalID string

	// StageID filters by stage instance.
	StageID string

	// Actions filters by action.
	Actions []Action
}

// Matches reports whether an entry satisfies the filter.
func (f ListFilter) Matches(e *Entry) bool {
	if f.ProposalID != "" && e.ProposalID != f.ProposalID {
		return false
	}
	if f.StageID != "" && e.StageID != f.StageID {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if e.Action == a {
				return true
			}
		}
		return false
	}
	return true
}
