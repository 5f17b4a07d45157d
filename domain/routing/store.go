package routing

import "context"

// Store persists routing rules and their steps.
type Store interface {
	// SaveRule persists a new rule.
	SaveRule(ctx context.Context, r *Rule) error

	// GetRule retrieves a rule by ID.
	GetRule(ctx context.Context, id string) (*Rule, error)

	// UpdateRule replaces an existing rule. Its steps are untouched.
	UpdateRule(ctx context.Context, r *Rule) error

	// DeleteRule removes a rule together with its steps.
	DeleteRule(ctx context.Context, id string) error

	// ListRules returns rules ordered by Order ascending, then declaration order.
	ListRules(ctx context.Context, filter ListFilter) ([]*Rule, error)

	// SaveStep persists a new step. The owning rule must exist.
	SaveStep(ctx context.Context, s *Step) error

	// GetStep retrieves a step by ID.
	GetStep(ctx context.Context, id string) (*Step, error)

	// UpdateStep replaces an existing step.
	UpdateStep(ctx context.Context, s *Step) error

	// DeleteStep removes a step.
	DeleteStep(ctx context.Context, id string) error

	// ListSteps returns a rule's steps ordered by Order ascending.
	ListSteps(ctx context.Context, ruleID string) ([]*Step, error)
}

// ListFilter filters rule queries.
type ListFilter struct {
	// ActiveOnly skips inactive rules.
	ActiveOnly bool
}

// Well-known routing configuration keys.
const (
	// SettingAlertLeadDays is the number of business days before a deadline
	// at which a stage counts as due soon.
	SettingAlertLeadDays = "alert_lead_days"

	// SettingDefaultRecipient is the recipient used by dispatch when a
	// notification carries only a placeholder recipient.
	SettingDefaultRecipient = "default_recipient"
)

// Settings is the flat key/value routing configuration.
type Settings interface {
	// Get returns the value for a key or ErrSettingNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value.
	Set(ctx context.Context, key, value string) error

	// All returns a copy of every setting.
	All(ctx context.Context) (map[string]string, error)
}
