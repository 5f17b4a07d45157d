package statemachine

import "github.com/felixgeelhaar/statekit"

// recordTransition stores the accepted target on the context. Actions
// receive **Context.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx
	c.To = TargetStatus(event.Type)
	c.Event = event.Type
}
