// Package history provides the append-only action log of the stage engine.
package history

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/legisflow/legisflow/domain/stage"
)

// ErrInvalidEntry indicates a history entry is malformed.
var ErrInvalidEntry = errors.New("invalid history entry")

// Action identifies what a history entry records.
type Action string

const (
	// ActionCreated records the creation of an initial stage.
	ActionCreated Action = "CREATED"

	// ActionStepCompleted records the closing of a stage by advance.
	ActionStepCompleted Action = "STEP_COMPLETED"

	// ActionNewStep records a stage spawned by advance.
	ActionNewStep Action = "NEW_STEP"

	// ActionFinalized records a stage closed with an outcome.
	ActionFinalized Action = "FINALIZED"

	// ActionReopened records a completed stage returned to progress.
	ActionReopened Action = "REOPENED"

	// ActionCancelled records an administrative cancellation.
	ActionCancelled Action = "CANCELLED"
)

// Entry is one recorded action on a stage instance.
type Entry struct {
	ID          string          `json:"id"`
	StageID     string          `json:"stage_id"`
	ProposalID  string          `json:"proposal_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Action      Action          `json:"action"`
	Description string          `json:"description"`
	ActorID     string          `json:"actor_id,omitempty"`
	Before      *stage.Instance `json:"before,omitempty"`
	After       *stage.Instance `json:"after,omitempty"`
}

// NewEntry creates an entry for a stage transition. The snapshots are cloned
// so later mutation of the instances does not leak into the log.
func NewEntry(action Action, description, actorID string, at time.Time, before, after *stage.Instance) *Entry {
	ref := after
	if ref == nil {
		ref = before
	}

	e := &Entry{
		ID:          uuid.New().String(),
		Timestamp:   at,
		Action:      action,
		Description: description,
		ActorID:     actorID,
		Before:      before.Clone(),
		After:       after.Clone(),
	}
	if ref != nil {
		e.StageID = ref.ID
		e.ProposalID = ref.ProposalID
	}
	return e
}

// Validate checks the required fields.
func (e *Entry) Validate() error {
	if e.ID == "" || e.StageID == "" || e.ProposalID == "" || e.Action == "" {
		return ErrInvalidEntry
	}
	return nil
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	copied := *e
	copied.Before = e.Before.Clone()
	copied.After = e.After.Clone()
	return &copied
}
