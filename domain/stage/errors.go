// Package stage provides the stage instance aggregate of the routing engine.
package stage

import "errors"

var (
	// ErrStageNotFound indicates the stage instance was not found.
	ErrStageNotFound = errors.New("stage not found")

	// ErrStageExists indicates a stage with this ID already exists.
	ErrStageExists = errors.New("stage already exists")

	// ErrInvalidStage indicates the stage instance is malformed.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrInvalidState indicates the requested transition is not allowed
	// from the stage's current status.
	ErrInvalidState = errors.New("invalid stage state for transition")

	// ErrStageInProgress indicates the proposal already has a stage in progress.
	ErrStageInProgress = errors.New("proposal already has a stage in progress")

	// ErrInvalidOutcome indicates an unknown outcome value.
	ErrInvalidOutcome = errors.New("invalid stage outcome")
)
