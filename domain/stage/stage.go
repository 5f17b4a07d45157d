// Package stage provides the stage instance aggregate of the routing engine.
package stage

import (
	"time"

	"github.com/google/uuid"
)

// Instance is one period a proposal spends at one unit under one stage type.
type Instance struct {
	// ID is the unique identifier.
	ID string `json:"id"`

	// ProposalID references the proposal being routed.
	ProposalID string `json:"proposal_id"`

	// EnteredAt is when the proposal entered this stage.
	EnteredAt time.Time `json:"entered_at"`

	// ExitedAt is when the stage was closed.
	ExitedAt *time.Time `json:"exited_at,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// StageTypeID references the catalog stage type.
	StageTypeID string `json:"stage_type_id"`

	// UnitID references the organizational unit holding the proposal.
	UnitID string `json:"unit_id"`

	// Notes is free text attached by the engine or an operator.
	Notes string `json:"notes,omitempty"`

	// Opinion is the written opinion issued at this stage.
	Opinion string `json:"opinion,omitempty"`

	// Outcome is set when the stage is finalized with a decision.
	Outcome Outcome `json:"outcome,omitempty"`

	// ResponsibleID references the responsible party.
	ResponsibleID string `json:"responsible_id,omitempty"`

	// Deadline is the target business-day timestamp, if any.
	Deadline *time.Time `json:"deadline,omitempty"`

	// DaysOverdue is set exactly when Deadline is set.
	DaysOverdue *int `json:"days_overdue,omitempty"`

	// Automatic is true when the engine created the stage during advance.
	Automatic bool `json:"automatic"`
}

// New creates an in-progress stage instance with a generated ID.
func New(proposalID, stageTypeID, unitID string, enteredAt time.Time) *Instance {
	return &Instance{
		ID:          uuid.New().String(),
		ProposalID:  proposalID,
		EnteredAt:   enteredAt,
		Status:      StatusInProgress,
		StageTypeID: stageTypeID,
		UnitID:      unitID,
	}
}

// Validate checks the required fields.
func (s *Instance) Validate() error {
	if s.ID == "" || s.ProposalID == "" || s.StageTypeID == "" || s.UnitID == "" {
		return ErrInvalidStage
	}
	if !s.Status.IsValid() {
		return ErrInvalidStage
	}
	if s.Outcome != "" && !s.Outcome.IsValid() {
		return ErrInvalidOutcome
	}
	return nil
}

// IsInProgress returns true if this is an open stage.
func (s *Instance) IsInProgress() bool {
	return s.Status == StatusInProgress
}

// SetDeadline sets the deadline and keeps DaysOverdue consistent with it:
// zero when a deadline is set, nil when it is cleared.
func (s *Instance) SetDeadline(deadline *time.Time) {
	s.Deadline = deadline
	if deadline == nil {
		s.DaysOverdue = nil
		return
	}
	zero := 0
	s.DaysOverdue = &zero
}

// Clone returns a deep copy of the instance.
func (s *Instance) Clone() *Instance {
	if s == nil {
		return nil
	}

	copied := *s
	if s.ExitedAt != nil {
		t := *s.ExitedAt
		copied.ExitedAt = &t
	}
	if s.Deadline != nil {
		t := *s.Deadline
		copied.Deadline = &t
	}
	if s.DaysOverdue != nil {
		d := *s.DaysOverdue
		copied.DaysOverdue = &d
	}
	return &copied
}

// Current picks the proposal's current stage from a set of its instances:
// the most recently entered IN_PROGRESS instance, or else the most recently
// entered instance overall. It returns nil for an empty set.
func Current(instances []*Instance) *Instance {
	var latestOpen, latest *Instance
	for _, s := range instances {
		if latest == nil || s.EnteredAt.After(latest.EnteredAt) {
			latest = s
		}
		if s.IsInProgress() && (latestOpen == nil || s.EnteredAt.After(latestOpen.EnteredAt)) {
			latestOpen = s
		}
	}
	if latestOpen != nil {
		return latestOpen
	}
	return latest
}
