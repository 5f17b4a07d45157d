package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for stage engine logging.

// ProposalID adds a proposal ID field.
func ProposalID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("proposal_id", id)
	}
}

// StageID adds a stage instance ID field.
func StageID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("stage_id", id)
	}
}

// Status adds a stage status field.
func Status(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", s)
	}
}

// RuleID adds a routing rule ID field.
func RuleID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("rule_id", id)
	}
}

// StepID adds a routing step ID field.
func StepID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("step_id", id)
	}
}

// UnitID adds an organizational unit ID field.
func UnitID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("unit_id", id)
	}
}

// Action adds a history action field.
func Action(a string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", a)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Count adds a named count field.
func Count(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
