package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/legisflow/legisflow/domain/stage"
)

// StageStore is an in-memory implementation of stage.Store.
type StageStore struct {
	stages map[string]*stage.Instance
	mu     sync.RWMutex
}

// NewStageStore creates a new in-memory stage store.
func NewStageStore() *StageStore {
	return &StageStore{
		stages: make(map[string]*stage.Instance),
	}
}

// Save persists a new stage instance.
func (s *StageStore) Save(ctx context.Context, inst *stage.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := inst.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stages[inst.ID]; exists {
		return stage.ErrStageExists
	}
	s.stages[inst.ID] = inst.Clone()
	return nil
}

// Get retrieves a stage instance by ID.
func (s *StageStore) Get(ctx context.Context, id string) (*stage.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.stages[id]
	if !ok {
		return nil, stage.ErrStageNotFound
	}
	return inst.Clone(), nil
}

// List returns instances matching the filter ordered by EnteredAt.
func (s *StageStore) List(ctx context.Context, filter stage.ListFilter) ([]*stage.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	result := make([]*stage.Instance, 0, len(s.stages))
	for _, inst := range s.stages {
		if filter.Matches(inst) {
			result = append(result, inst.Clone())
		}
	}
	s.mu.RUnlock()

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

// Update replaces an existing stage instance.
func (s *StageStore) Update(ctx context.Context, inst *stage.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := inst.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stages[inst.ID]; !exists {
		return stage.ErrStageNotFound
	}
	s.stages[inst.ID] = inst.Clone()
	return nil
}

// Delete removes a stage instance.
func (s *StageStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stages[id]; !exists {
		return stage.ErrStageNotFound
	}
	delete(s.stages, id)
	return nil
}

// Len returns the number of stored instances.
func (s *StageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stages)
}

var _ stage.Store = (*StageStore)(nil)
