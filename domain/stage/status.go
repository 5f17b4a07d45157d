package stage

// Status represents the lifecycle state of a stage instance.
type Status string

const (
	// StatusInProgress is the state of the proposal's current stage.
	StatusInProgress Status = "IN_PROGRESS"

	// StatusCompleted indicates the stage was closed by advance or finalize.
	StatusCompleted Status = "COMPLETED"

	// StatusCancelled indicates the stage was cancelled administratively.
	StatusCancelled Status = "CANCELLED"
)

// StatusTransitions defines valid status transitions.
var StatusTransitions = map[Status][]Status{
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {},
}

// CanTransitionTo returns true if the transition from current status to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	validTargets, ok := StatusTransitions[s]
	if !ok {
		return false
	}
	for _, valid := range validTargets {
		if valid == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status can never change again.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled
}

// IsValid returns true if the status is known.
func (s Status) IsValid() bool {
	_, ok := StatusTransitions[s]
	return ok
}

// Outcome is the decision recorded when a stage is finalized.
type Outcome string

const (
	OutcomeApproved               Outcome = "APPROVED"
	OutcomeRejected               Outcome = "REJECTED"
	OutcomeApprovedWithAmendments Outcome = "APPROVED_WITH_AMENDMENTS"
	OutcomeArchived               Outcome = "ARCHIVED"
)

// IsValid returns true if the outcome is one of the known outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeApproved, OutcomeRejected, OutcomeApprovedWithAmendments, OutcomeArchived:
		return true
	}
	return false
}

// ParseOutcome validates a user-supplied outcome. The empty string is
// accepted and means "leave unchanged".
func ParseOutcome(s string) (Outcome, error) {
	if s == "" {
		return "", nil
	}
	o := Outcome(s)
	if !o.IsValid() {
		return "", ErrInvalidOutcome
	}
	return o, nil
}
