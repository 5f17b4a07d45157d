// Package routing provides routing rules, their ordered steps and the
// condition predicates that select a rule for a stage.
package routing

import "strings"

// Operator selects the predicate a Condition applies.
type Operator string

const (
	// OpAny always matches.
	OpAny Operator = "any"

	// OpEquals matches a case-insensitive equal value.
	OpEquals Operator = "equals"

	// OpNotEquals matches any value that is not case-insensitively equal.
	OpNotEquals Operator = "not_equals"

	// OpOneOf matches when any listed value is case-insensitively equal.
	// An empty list matches everything.
	OpOneOf Operator = "one_of"
)

// Condition is a predicate over one context key. It is a tagged variant:
// Op decides which of Value or Values is read.
type Condition struct {
	Op     Operator `json:"op" yaml:"op"`
	Value  string   `json:"value,omitempty" yaml:"value,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// Any returns a condition that always matches.
func Any() Condition { return Condition{Op: OpAny} }

// Equals returns a case-insensitive equality condition.
func Equals(v string) Condition { return Condition{Op: OpEquals, Value: v} }

// NotEquals returns a case-insensitive inequality condition.
func NotEquals(v string) Condition { return Condition{Op: OpNotEquals, Value: v} }

// OneOf returns a case-insensitive membership condition.
func OneOf(vs ...string) Condition { return Condition{Op: OpOneOf, Values: vs} }

// Validate checks the operator is known.
func (c Condition) Validate() error {
	switch c.Op {
	case OpAny, OpEquals, OpNotEquals, OpOneOf:
		return nil
	}
	return ErrInvalidCondition
}

// Matches evaluates the condition against a context value.
func (c Condition) Matches(value string) bool {
	switch c.Op {
	case OpAny:
		return true
	case OpEquals:
		return strings.EqualFold(c.Value, value)
	case OpNotEquals:
		return !strings.EqualFold(c.Value, value)
	case OpOneOf:
		if len(c.Values) == 0 {
			return true
		}
		for _, v := range c.Values {
			if strings.EqualFold(v, value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Context keys a rule condition can reference.
const (
	KeyProposalID  = "proposalId"
	KeyStageTypeID = "stageTypeId"
	KeyUnitID      = "unitId"
	KeyStatus      = "status"
	KeyOutcome     = "outcome"
	KeyAutomatic   = "automatic"
)

// keyAliases maps accepted spellings of a context key to its canonical form.
var keyAliases = map[string]string{
	"proposal_id":   KeyProposalID,
	"stage_type_id": KeyStageTypeID,
	"unit_id":       KeyUnitID,
}

// CanonicalKey returns the canonical spelling of a context key.
func CanonicalKey(key string) string {
	if canon, ok := keyAliases[key]; ok {
		return canon
	}
	return key
}

// MatchContext is the stage context conditions are evaluated against.
type MatchContext map[string]string

// MatchAll reports whether every condition matches the context. Keys that
// are absent from the context are compared against the empty string.
func MatchAll(conditions map[string]Condition, ctx MatchContext) bool {
	for key, cond := range conditions {
		if !cond.Matches(ctx[CanonicalKey(key)]) {
			return false
		}
	}
	return true
}
