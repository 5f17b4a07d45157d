package memory

import (
	"context"
	"sync"

	"github.com/legisflow/legisflow/domain/notification"
)

// NotificationStore is an in-memory implementation of notification.Store.
type NotificationStore struct {
	order []string
	byID  map[string]*notification.Notification
	mu    sync.RWMutex
}

// NewNotificationStore creates a new in-memory notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		byID: make(map[string]*notification.Notification),
	}
}

// Append persists notifications in order.
func (s *NotificationStore) Append(ctx context.Context, ns ...*notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, n := range ns {
		if err := n.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range ns {
		if _, exists := s.byID[n.ID]; exists {
			return notification.ErrInvalidNotification
		}
	}
	for _, n := range ns {
		s.byID[n.ID] = n.Clone()
		s.order = append(s.order, n.ID)
	}
	return nil
}

// Get retrieves a notification by ID.
func (s *NotificationStore) Get(ctx context.Context, id string) (*notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok {
		return nil, notification.ErrNotificationNotFound
	}
	return n.Clone(), nil
}

// List returns notifications matching the filter in append order.
func (s *NotificationStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*notification.Notification, 0)
	for _, id := range s.order {
		n := s.byID[id]
		if !filter.Matches(n) {
			continue
		}
		result = append(result, n.Clone())
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// UpdateStatus stores the delivery fields of an existing notification.
func (s *NotificationStore) UpdateStatus(ctx context.Context, n *notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[n.ID]
	if !ok {
		return notification.ErrNotificationNotFound
	}
	stored.Status = n.Status
	stored.Attempts = n.Attempts
	stored.LastError = n.LastError
	return nil
}

// Discard removes notifications by ID.
func (s *NotificationStore) Discard(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.byID, id)
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.byID[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return nil
}

// Len returns the number of stored notifications.
func (s *NotificationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

var _ notification.Store = (*NotificationStore)(nil)
