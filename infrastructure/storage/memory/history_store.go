package memory

import (
	"context"
	"sync"

	"github.com/legisflow/legisflow/domain/history"
)

// HistoryStore is an in-memory implementation of history.Store.
type HistoryStore struct {
	entries []*history.Entry
	mu      sync.RWMutex
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append persists entries in order. Either all entries are appended or none.
func (s *HistoryStore) Append(ctx context.Context, entries ...*history.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.entries = append(s.entries, e.Clone())
	}
	return nil
}

// List returns entries matching the filter in append order.
func (s *HistoryStore) List(ctx context.Context, filter history.ListFilter) ([]*history.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*history.Entry, 0)
	for _, e := range s.entries {
		if filter.Matches(e) {
			result = append(result, e.Clone())
		}
	}
	return result, nil
}

// Discard removes entries by ID.
func (s *HistoryStore) Discard(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
	return nil
}

// Len returns the number of stored entries.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ history.Store = (*HistoryStore)(nil)
