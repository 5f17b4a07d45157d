package application

import (
	"context"
	"errors"
	"strconv"

	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/domain/stage"
)

// resolution is the outcome of rule resolution for one stage instance.
type resolution struct {
	rule     *routing.Rule
	steps    []*routing.Step
	position int
}

// destination returns the next step, or nil when the workflow ends.
func (r *resolution) destination() *routing.Step {
	if len(r.steps) == 0 {
		return nil
	}
	if r.position < 0 {
		return r.steps[0]
	}
	if r.position+1 < len(r.steps) {
		return r.steps[r.position+1]
	}
	return nil
}

// matchContext builds the context rule conditions are evaluated against.
func matchContext(inst *stage.Instance) routing.MatchContext {
	return routing.MatchContext{
		routing.KeyProposalID:  inst.ProposalID,
		routing.KeyStageTypeID: inst.StageTypeID,
		routing.KeyUnitID:      inst.UnitID,
		routing.KeyStatus:      string(inst.Status),
		routing.KeyOutcome:     string(inst.Outcome),
		routing.KeyAutomatic:   strconv.FormatBool(inst.Automatic),
	}
}

// resolve selects the rule, its ordered steps and the instance's position.
// A missing explicit rule, no matching rule and a rule without steps all
// resolve to an empty step list.
func (e *Engine) resolve(ctx context.Context, inst *stage.Instance, ruleID, stepID string) (*resolution, error) {
	res := &resolution{position: -1}

	rule, err := e.matchRule(ctx, inst, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return res, nil
	}
	res.rule = rule

	steps, err := e.routing.ListSteps(ctx, rule.ID)
	if err != nil {
		return nil, err
	}
	routing.SortSteps(steps)
	res.steps = steps
	res.position = stepPosition(steps, inst, stepID)

	return res, nil
}

// matchRule returns the explicit rule when given, otherwise the first active
// rule whose conditions match the instance.
func (e *Engine) matchRule(ctx context.Context, inst *stage.Instance, ruleID string) (*routing.Rule, error) {
	if ruleID != "" {
		rule, err := e.routing.GetRule(ctx, ruleID)
		if errors.Is(err, routing.ErrRuleNotFound) {
			return nil, nil
		}
		return rule, err
	}

	rules, err := e.routing.ListRules(ctx, routing.ListFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	routing.SortRules(rules)

	mctx := matchContext(inst)
	for _, r := range rules {
		if r.Matches(mctx) {
			return r, nil
		}
	}
	return nil, nil
}

// stepPosition finds the instance's index within the ordered steps.
func stepPosition(steps []*routing.Step, inst *stage.Instance, stepID string) int {
	if stepID != "" {
		for i, s := range steps {
			if s.ID == stepID {
				return i
			}
		}
		return -1
	}
	for i, s := range steps {
		if s.StageTypeID == inst.StageTypeID && s.UnitID == inst.UnitID {
			return i
		}
	}
	return -1
}
