package badger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/legisflow/legisflow/domain/history"
)

// HistoryStore is a BadgerDB-backed implementation of history.Store.
type HistoryStore struct {
	log seqLog
}

// Append persists entries in order within one transaction.
func (s *HistoryStore) Append(ctx context.Context, entries ...*history.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	values := make([][]byte, len(entries))
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		ids[i], values[i] = e.ID, data
	}

	err := update(s.log.db, func(txn *badger.Txn) error {
		return s.log.append(txn, ids, values)
	})
	if errors.Is(err, errDuplicateID) {
		return history.ErrInvalidEntry
	}
	return err
}

// List returns entries matching the filter in append order.
func (s *HistoryStore) List(ctx context.Context, filter history.ListFilter) ([]*history.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]*history.Entry, 0)
	err := s.log.db.View(func(txn *badger.Txn) error {
		return s.log.each(txn, func(val []byte) (bool, error) {
			var e history.Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return false, err
			}
			if filter.Matches(&e) {
				result = append(result, &e)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Discard removes entries by ID.
func (s *HistoryStore) Discard(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return update(s.log.db, func(txn *badger.Txn) error {
		return s.log.discard(txn, ids)
	})
}

var _ history.Store = (*HistoryStore)(nil)
