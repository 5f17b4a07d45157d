package routing

import "errors"

var (
	// ErrRuleNotFound indicates the routing rule was not found.
	ErrRuleNotFound = errors.New("routing rule not found")

	// ErrRuleExists indicates a rule with this ID already exists.
	ErrRuleExists = errors.New("routing rule already exists")

	// ErrInvalidRule indicates the rule is malformed.
	ErrInvalidRule = errors.New("invalid routing rule")

	// ErrStepNotFound indicates the rule step was not found.
	ErrStepNotFound = errors.New("routing step not found")

	// ErrStepExists indicates a step with this ID already exists.
	ErrStepExists = errors.New("routing step already exists")

	// ErrInvalidStep indicates the step is malformed.
	ErrInvalidStep = errors.New("invalid routing step")

	// ErrInvalidCondition indicates a condition uses an unknown operator.
	ErrInvalidCondition = errors.New("invalid routing condition")

	// ErrSettingNotFound indicates the configuration key is not set.
	ErrSettingNotFound = errors.New("routing setting not found")

	// ErrInvalidSetting indicates a configuration value cannot be parsed.
	ErrInvalidSetting = errors.New("invalid routing setting")
)
