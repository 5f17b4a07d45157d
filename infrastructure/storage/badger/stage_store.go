package badger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/legisflow/legisflow/domain/stage"
)

// StageStore is a BadgerDB-backed implementation of stage.Store.
// Instances are stored as JSON under prefix + stage ID.
type StageStore struct {
	db     *badger.DB
	prefix string
}

func (s *StageStore) key(id string) []byte {
	return []byte(s.prefix + id)
}

// Save persists a new stage instance.
func (s *StageStore) Save(ctx context.Context, inst *stage.Instance) error {
	return s.put(ctx, inst, false)
}

// Update replaces an existing stage instance.
func (s *StageStore) Update(ctx context.Context, inst *stage.Instance) error {
	return s.put(ctx, inst, true)
}

func (s *StageStore) put(ctx context.Context, inst *stage.Instance, replace bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := inst.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(inst)
	if err != nil {
		return err
	}

	return update(s.db, func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(inst.ID))
		switch {
		case err == nil && !replace:
			return stage.ErrStageExists
		case errors.Is(err, badger.ErrKeyNotFound) && replace:
			return stage.ErrStageNotFound
		case err != nil && !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(s.key(inst.ID), data)
	})
}

// Get retrieves a stage instance by ID.
func (s *StageStore) Get(ctx context.Context, id string) (*stage.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var inst stage.Instance
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return stage.ErrStageNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &inst)
		})
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// List returns instances matching the filter ordered by EnteredAt.
func (s *StageStore) List(ctx context.Context, filter stage.ListFilter) ([]*stage.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]*stage.Instance, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(s.prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var inst stage.Instance
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &inst)
			})
			if err != nil {
				return err
			}
			if filter.Matches(&inst) {
				result = append(result, &inst)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EnteredAt.Equal(result[j].EnteredAt) {
			return result[i].EnteredAt.Before(result[j].EnteredAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Delete removes a stage instance.
func (s *StageStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return update(s.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(s.key(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return stage.ErrStageNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(s.key(id))
	})
}

var _ stage.Store = (*StageStore)(nil)
