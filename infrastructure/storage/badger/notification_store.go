package badger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/legisflow/legisflow/domain/notification"
)

// NotificationStore is a BadgerDB-backed implementation of notification.Store.
type NotificationStore struct {
	log seqLog
}

// Append persists notifications in order within one transaction.
func (s *NotificationStore) Append(ctx context.Context, ns ...*notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ns) == 0 {
		return nil
	}

	ids := make([]string, len(ns))
	values := make([][]byte, len(ns))
	for i, n := range ns {
		if err := n.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		ids[i], values[i] = n.ID, data
	}

	err := update(s.log.db, func(txn *badger.Txn) error {
		return s.log.append(txn, ids, values)
	})
	if errors.Is(err, errDuplicateID) {
		return notification.ErrInvalidNotification
	}
	return err
}

// Get retrieves a notification by ID.
func (s *NotificationStore) Get(ctx context.Context, id string) (*notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var n notification.Notification
	err := s.log.db.View(func(txn *badger.Txn) error {
		data, err := s.log.get(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notification.ErrNotificationNotFound
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns notifications matching the filter in append order.
func (s *NotificationStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]*notification.Notification, 0)
	err := s.log.db.View(func(txn *badger.Txn) error {
		return s.log.each(txn, func(val []byte) (bool, error) {
			var n notification.Notification
			if err := json.Unmarshal(val, &n); err != nil {
				return false, err
			}
			if filter.Matches(&n) {
				result = append(result, &n)
			}
			return filter.Limit <= 0 || len(result) < filter.Limit, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus stores the delivery fields of an existing notification.
func (s *NotificationStore) UpdateStatus(ctx context.Context, n *notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return update(s.log.db, func(txn *badger.Txn) error {
		key, err := s.log.lookup(txn, n.ID)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notification.ErrNotificationNotFound
		}
		if err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var stored notification.Notification
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}

		stored.Status = n.Status
		stored.Attempts = n.Attempts
		stored.LastError = n.LastError

		data, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// Discard removes notifications by ID.
func (s *NotificationStore) Discard(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return update(s.log.db, func(txn *badger.Txn) error {
		return s.log.discard(txn, ids)
	})
}

var _ notification.Store = (*NotificationStore)(nil)
