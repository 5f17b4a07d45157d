package routing

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Payload declares one notification or alert emitted when a step is entered.
type Payload struct {
	Channel   string            `json:"channel,omitempty" yaml:"channel,omitempty"`
	Recipient string            `json:"recipient,omitempty" yaml:"recipient,omitempty"`
	Extra     map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	if p.Extra != nil {
		extra := make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}

// Rule matches stage contexts and describes the ordered steps a proposal
// traverses once matched.
type Rule struct {
	ID          string               `json:"id" yaml:"id"`
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Conditions  map[string]Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Active      bool                 `json:"active" yaml:"active"`
	Order       int                  `json:"order" yaml:"order"`
	CreatedAt   time.Time            `json:"created_at" yaml:"-"`
}

// NewRule creates an active rule with a generated ID.
func NewRule(name string, conditions map[string]Condition) *Rule {
	return &Rule{
		ID:         uuid.New().String(),
		Name:       name,
		Conditions: conditions,
		Active:     true,
		CreatedAt:  time.Now(),
	}
}

// IsWildcard returns true when the rule has no conditions.
func (r *Rule) IsWildcard() bool {
	return len(r.Conditions) == 0
}

// Matches evaluates the rule's conditions against a context.
func (r *Rule) Matches(ctx MatchContext) bool {
	return MatchAll(r.Conditions, ctx)
}

// Validate checks the rule and its conditions.
func (r *Rule) Validate() error {
	if r.ID == "" || r.Name == "" {
		return ErrInvalidRule
	}
	for _, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the rule.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	copied := *r
	if r.Conditions != nil {
		copied.Conditions = make(map[string]Condition, len(r.Conditions))
		for k, c := range r.Conditions {
			if c.Values != nil {
				c.Values = append([]string(nil), c.Values...)
			}
			copied.Conditions[k] = c
		}
	}
	return &copied
}

// Step is one ordered entry of a rule.
type Step struct {
	ID          string `json:"id" yaml:"id"`
	RuleID      string `json:"rule_id" yaml:"-"`
	Order       int    `json:"order" yaml:"order"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	StageTypeID string `json:"stage_type_id,omitempty" yaml:"stage_type_id,omitempty"`
	UnitID      string `json:"unit_id,omitempty" yaml:"unit_id,omitempty"`

	// Notifications are emitted when a proposal enters the step.
	Notifications []Payload `json:"notifications,omitempty" yaml:"notifications,omitempty"`

	// Alerts are emitted alongside notifications, after them.
	Alerts []Payload `json:"alerts,omitempty" yaml:"alerts,omitempty"`

	// DeadlineDays overrides the stage type's regimental deadline when positive.
	DeadlineDays int `json:"deadline_days,omitempty" yaml:"deadline_days,omitempty"`
}

// Validate checks the step's required fields.
func (s *Step) Validate() error {
	if s.ID == "" || s.RuleID == "" || s.Name == "" {
		return ErrInvalidStep
	}
	if s.Order < 1 || s.DeadlineDays < 0 {
		return ErrInvalidStep
	}
	return nil
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	copied := *s
	if s.Notifications != nil {
		copied.Notifications = make([]Payload, len(s.Notifications))
		for i, p := range s.Notifications {
			copied.Notifications[i] = p.Clone()
		}
	}
	if s.Alerts != nil {
		copied.Alerts = make([]Payload, len(s.Alerts))
		for i, p := range s.Alerts {
			copied.Alerts[i] = p.Clone()
		}
	}
	return &copied
}

// SortSteps orders steps by Order ascending, keeping insertion order for ties.
func SortSteps(steps []*Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
}

// SortRules orders rules by Order ascending, keeping declaration order for ties.
func SortRules(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Order < rules[j].Order
	})
}
