// Package statemachine provides the statekit model of the stage lifecycle.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/legisflow/legisflow/domain/stage"
)

// Context carries one transition attempt through the state machine.
type Context struct {
	// From is the status the instance is in before the event.
	From stage.Status
	// To is set by the transition action once the event is accepted.
	To stage.Status
	// Event is the last accepted event.
	Event statekit.EventType
}

// Events accepted by the stage lifecycle.
const (
	EventAdvance  = "ADVANCE"
	EventFinalize = "FINALIZE"
	EventReopen   = "REOPEN"
	EventCancel   = "CANCEL"
)

// State IDs as StateID type for statekit.
const (
	stateInProgress statekit.StateID = "in_progress"
	stateCompleted  statekit.StateID = "completed"
	stateCancelled  statekit.StateID = "cancelled"
)

const machineID = "stage"

// NewStageMachine creates the stage lifecycle statechart.
func NewStageMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](machineID).
		WithInitial(stateInProgress).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("canTransition", guardCanTransition).
		State(stateInProgress).
		On(EventAdvance).Target(stateCompleted).Guard("canTransition").Do("recordTransition").
		On(EventFinalize).Target(stateCompleted).Guard("canTransition").Do("recordTransition").
		On(EventCancel).Target(stateCancelled).Guard("canTransition").Do("recordTransition").
		Done().
		State(stateCompleted).
		On(EventReopen).Target(stateInProgress).Guard("canTransition").Do("recordTransition").
		Done().
		State(stateCancelled).
		Final().
		Done().
		Build()
}

// TargetStatus returns the status an event leads to.
func TargetStatus(event statekit.EventType) stage.Status {
	switch event {
	case EventAdvance, EventFinalize:
		return stage.StatusCompleted
	case EventReopen:
		return stage.StatusInProgress
	case EventCancel:
		return stage.StatusCancelled
	default:
		return ""
	}
}

// stateForStatus converts a domain status to the machine state ID.
func stateForStatus(s stage.Status) statekit.StateID {
	switch s {
	case stage.StatusInProgress:
		return stateInProgress
	case stage.StatusCompleted:
		return stateCompleted
	case stage.StatusCancelled:
		return stateCancelled
	default:
		return statekit.StateID(s)
	}
}

// StatusFromMachine converts the machine state ID to a domain status.
func StatusFromMachine(id statekit.StateID) stage.Status {
	switch id {
	case stateInProgress:
		return stage.StatusInProgress
	case stateCompleted:
		return stage.StatusCompleted
	case stateCancelled:
		return stage.StatusCancelled
	default:
		return stage.Status(id)
	}
}
