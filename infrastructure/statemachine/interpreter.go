package statemachine

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/legisflow/legisflow/domain/stage"
)

// Lifecycle checks stage transitions against the statechart.
type Lifecycle struct {
	machine *statekit.MachineConfig[*Context]
}

// NewLifecycle builds the stage machine once for reuse.
func NewLifecycle() (*Lifecycle, error) {
	machine, err := NewStageMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	return &Lifecycle{machine: machine}, nil
}

// Transition fires an event from the given status and returns the resulting
// status. It returns stage.ErrInvalidState when the statechart rejects the
// event.
func (l *Lifecycle) Transition(from stage.Status, event statekit.EventType) (stage.Status, error) {
	to := TargetStatus(event)
	if to == "" || !from.CanTransitionTo(to) {
		return from, fmt.Errorf("%w: %s not allowed from %s", stage.ErrInvalidState, event, from)
	}

	mctx := &Context{From: from}
	interp := statekit.NewInterpreter(l.machine)
	interp.UpdateContext(func(c **Context) {
		*c = mctx
	})

	snapshot := statekit.Snapshot[*Context]{
		MachineID:    machineID,
		CurrentState: stateForStatus(from),
		Context:      mctx,
		CreatedAt:    time.Now(),
	}
	if err := interp.Restore(snapshot); err != nil {
		return from, fmt.Errorf("failed to restore state: %w", err)
	}

	interp.Send(statekit.Event{Type: event})

	got := StatusFromMachine(interp.State().Value)
	if got != to || mctx.To != to {
		return from, fmt.Errorf("%w: %s not allowed from %s", stage.ErrInvalidState, event, from)
	}
	return got, nil
}

// IsTerminal reports whether the status is a final state of the statechart.
func (l *Lifecycle) IsTerminal(s stage.Status) bool {
	return s == StatusFromMachine(stateCancelled)
}
