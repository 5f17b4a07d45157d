package statemachine

import "github.com/felixgeelhaar/statekit"

// guardCanTransition checks the status transition table. Guards receive the
// *Context directly.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil {
		return false
	}
	to := TargetStatus(event.Type)
	return to != "" && ctx.From.CanTransitionTo(to)
}
