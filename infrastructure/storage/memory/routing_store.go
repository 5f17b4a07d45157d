package memory

import (
	"context"
	"sync"

	"github.com/legisflow/legisflow/domain/routing"
)

// RoutingStore is an in-memory implementation of routing.Store.
type RoutingStore struct {
	rules     map[string]*routing.Rule
	ruleOrder []string
	steps     map[string]*routing.Step
	stepOrder []string
	mu        sync.RWMutex
}

// NewRoutingStore creates a new in-memory routing store.
func NewRoutingStore() *RoutingStore {
	return &RoutingStore{
		rules: make(map[string]*routing.Rule),
		steps: make(map[string]*routing.Step),
	}
}

// SaveRule persists a new rule.
func (s *RoutingStore) SaveRule(ctx context.Context, r *routing.Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.ID]; exists {
		return routing.ErrRuleExists
	}
	s.rules[r.ID] = r.Clone()
	s.ruleOrder = append(s.ruleOrder, r.ID)
	return nil
}

// GetRule retrieves a rule by ID.
func (s *RoutingStore) GetRule(ctx context.Context, id string) (*routing.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return nil, routing.ErrRuleNotFound
	}
	return r.Clone(), nil
}

// UpdateRule replaces a rule's fields. Its steps are untouched.
func (s *RoutingStore) UpdateRule(ctx context.Context, r *routing.Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.ID]; !exists {
		return routing.ErrRuleNotFound
	}
	s.rules[r.ID] = r.Clone()
	return nil
}

// DeleteRule removes a rule and its steps.
func (s *RoutingStore) DeleteRule(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return routing.ErrRuleNotFound
	}
	delete(s.rules, id)
	s.ruleOrder = removeID(s.ruleOrder, id)

	kept := s.stepOrder[:0]
	for _, stepID := range s.stepOrder {
		if s.steps[stepID].RuleID == id {
			delete(s.steps, stepID)
			continue
		}
		kept = append(kept, stepID)
	}
	s.stepOrder = kept
	return nil
}

// ListRules returns rules ordered by Order, then declaration order.
func (s *RoutingStore) ListRules(ctx context.Context, filter routing.ListFilter) ([]*routing.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	result := make([]*routing.Rule, 0, len(s.ruleOrder))
	for _, id := range s.ruleOrder {
		r := s.rules[id]
		if filter.ActiveOnly && !r.Active {
			continue
		}
		result = append(result, r.Clone())
	}
	s.mu.RUnlock()

	routing.SortRules(result)
	return result, nil
}

// SaveStep persists a new step. The owning rule must exist.
func (s *RoutingStore) SaveStep(ctx context.Context, step *routing.Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := step.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[step.RuleID]; !exists {
		return routing.ErrRuleNotFound
	}
	if _, exists := s.steps[step.ID]; exists {
		return routing.ErrStepExists
	}
	s.steps[step.ID] = step.Clone()
	s.stepOrder = append(s.stepOrder, step.ID)
	return nil
}

// GetStep retrieves a step by ID.
func (s *RoutingStore) GetStep(ctx context.Context, id string) (*routing.Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	step, ok := s.steps[id]
	if !ok {
		return nil, routing.ErrStepNotFound
	}
	return step.Clone(), nil
}

// UpdateStep replaces an existing step.
func (s *RoutingStore) UpdateStep(ctx context.Context, step *routing.Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := step.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.steps[step.ID]; !exists {
		return routing.ErrStepNotFound
	}
	if _, exists := s.rules[step.RuleID]; !exists {
		return routing.ErrRuleNotFound
	}
	s.steps[step.ID] = step.Clone()
	return nil
}

// DeleteStep removes a step.
func (s *RoutingStore) DeleteStep(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.steps[id]; !exists {
		return routing.ErrStepNotFound
	}
	delete(s.steps, id)
	s.stepOrder = removeID(s.stepOrder, id)
	return nil
}

// ListSteps returns a rule's steps ordered by Order.
func (s *RoutingStore) ListSteps(ctx context.Context, ruleID string) ([]*routing.Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if _, exists := s.rules[ruleID]; !exists {
		s.mu.RUnlock()
		return nil, routing.ErrRuleNotFound
	}
	result := make([]*routing.Step, 0)
	for _, id := range s.stepOrder {
		if step := s.steps[id]; step.RuleID == ruleID {
			result = append(result, step.Clone())
		}
	}
	s.mu.RUnlock()

	routing.SortSteps(result)
	return result, nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

var _ routing.Store = (*RoutingStore)(nil)
