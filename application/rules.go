package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/legisflow/legisflow/domain/catalog"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/infrastructure/logging"
)

// CreateRule stores a new routing rule, assigning an ID when it has none.
func (e *Engine) CreateRule(ctx context.Context, r *routing.Rule) (*routing.Rule, error) {
	rule := r.Clone()
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = e.now()
	}

	err := e.withWriter(func() error {
		return e.routing.SaveRule(ctx, rule)
	})
	if err != nil {
		return nil, e.fail(ctx, "create_rule", err, logging.RuleID(rule.ID))
	}

	logging.Info().
		Add(logging.RuleID(rule.ID)).
		Add(logging.Str("name", rule.Name)).
		Msg("routing rule created")
	return rule, nil
}

// UpdateRule replaces a rule's attributes. Its steps are kept.
func (e *Engine) UpdateRule(ctx context.Context, r *routing.Rule) (*routing.Rule, error) {
	rule := r.Clone()
	err := e.withWriter(func() error {
		existing, err := e.routing.GetRule(ctx, rule.ID)
		if err != nil {
			return err
		}
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = existing.CreatedAt
		}
		return e.routing.UpdateRule(ctx, rule)
	})
	if err != nil {
		return nil, e.fail(ctx, "update_rule", err, logging.RuleID(rule.ID))
	}
	return rule, nil
}

// DeleteRule removes a rule and its steps.
func (e *Engine) DeleteRule(ctx context.Context, ruleID string) error {
	err := e.withWriter(func() error {
		return e.routing.DeleteRule(ctx, ruleID)
	})
	if err != nil {
		return e.fail(ctx, "delete_rule", err, logging.RuleID(ruleID))
	}
	logging.Info().Add(logging.RuleID(ruleID)).Msg("routing rule deleted")
	return nil
}

// GetRule returns a rule by ID.
func (e *Engine) GetRule(ctx context.Context, ruleID string) (*routing.Rule, error) {
	return e.routing.GetRule(ctx, ruleID)
}

// ListRules returns rules in evaluation order.
func (e *Engine) ListRules(ctx context.Context, activeOnly bool) ([]*routing.Rule, error) {
	rules, err := e.routing.ListRules(ctx, routing.ListFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, err
	}
	routing.SortRules(rules)
	return rules, nil
}

// AddStep appends a step to a rule. A zero Order places it after the
// existing steps.
func (e *Engine) AddStep(ctx context.Context, s *routing.Step) (*routing.Step, error) {
	step := s.Clone()
	if step.ID == "" {
		step.ID = uuid.New().String()
	}

	err := e.withWriter(func() error {
		existing, err := e.routing.ListSteps(ctx, step.RuleID)
		if err != nil {
			return err
		}
		if step.Order == 0 {
			step.Order = len(existing) + 1
		}
		if err := e.checkStepRefs(ctx, step); err != nil {
			return err
		}
		return e.routing.SaveStep(ctx, step)
	})
	if err != nil {
		return nil, e.fail(ctx, "add_step", err,
			logging.RuleID(step.RuleID), logging.StepID(step.ID))
	}

	logging.Info().
		Add(logging.RuleID(step.RuleID)).
		Add(logging.StepID(step.ID)).
		Add(logging.Count("order", step.Order)).
		Msg("routing step added")
	return step, nil
}

// UpdateStep replaces a step's attributes.
func (e *Engine) UpdateStep(ctx context.Context, s *routing.Step) (*routing.Step, error) {
	step := s.Clone()
	err := e.withWriter(func() error {
		if err := e.checkStepRefs(ctx, step); err != nil {
			return err
		}
		return e.routing.UpdateStep(ctx, step)
	})
	if err != nil {
		return nil, e.fail(ctx, "update_step", err,
			logging.RuleID(step.RuleID), logging.StepID(step.ID))
	}
	return step, nil
}

// DeleteStep removes a step.
func (e *Engine) DeleteStep(ctx context.Context, stepID string) error {
	err := e.withWriter(func() error {
		return e.routing.DeleteStep(ctx, stepID)
	})
	if err != nil {
		return e.fail(ctx, "delete_step", err, logging.StepID(stepID))
	}
	return nil
}

// ListSteps returns a rule's steps ordered by Order.
func (e *Engine) ListSteps(ctx context.Context, ruleID string) ([]*routing.Step, error) {
	steps, err := e.routing.ListSteps(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	routing.SortSteps(steps)
	return steps, nil
}

// checkStepRefs verifies the catalog entries a step names exist.
func (e *Engine) checkStepRefs(ctx context.Context, step *routing.Step) error {
	if step.StageTypeID != "" {
		if _, err := e.catalog.GetStageType(ctx, step.StageTypeID); err != nil {
			return fmt.Errorf("step %s: %w", step.ID, err)
		}
	}
	if step.UnitID != "" {
		if _, err := e.catalog.GetUnit(ctx, step.UnitID); err != nil {
			return fmt.Errorf("step %s: %w", step.ID, err)
		}
	}
	return nil
}

// LoadRules creates each rule and its steps in order. Rules whose ID
// already exists are skipped with their steps.
func (e *Engine) LoadRules(ctx context.Context, rules []*routing.Rule, steps map[string][]*routing.Step) (int, error) {
	loaded := 0
	for _, r := range rules {
		if r.ID != "" {
			_, err := e.routing.GetRule(ctx, r.ID)
			if err == nil {
				logging.Debug().Add(logging.RuleID(r.ID)).Msg("rule already loaded")
				continue
			}
			if !errors.Is(err, routing.ErrRuleNotFound) {
				return loaded, err
			}
		}

		created, err := e.CreateRule(ctx, r)
		if err != nil {
			return loaded, err
		}
		for _, s := range steps[r.ID] {
			step := s.Clone()
			step.RuleID = created.ID
			if _, err := e.AddStep(ctx, step); err != nil {
				return loaded, err
			}
		}
		loaded++
	}
	return loaded, nil
}

// SeedCatalog stores catalog entries, replacing entries with the same ID.
func (e *Engine) SeedCatalog(ctx context.Context, proposalTypes []*catalog.ProposalType, units []*catalog.Unit, stageTypes []*catalog.StageType) error {
	return e.withWriter(func() error {
		for _, p := range proposalTypes {
			if err := e.catalog.SaveProposalType(ctx, p); err != nil {
				return err
			}
		}
		for _, u := range units {
			if err := e.catalog.SaveUnit(ctx, u); err != nil {
				return err
			}
		}
		for _, s := range stageTypes {
			if err := e.catalog.SaveStageType(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
}
