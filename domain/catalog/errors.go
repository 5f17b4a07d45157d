// Package catalog provides the reference registries read by the stage engine.
package catalog

import "errors"

var (
	// ErrProposalTypeNotFound indicates the proposal type was not found.
	ErrProposalTypeNotFound = errors.New("proposal type not found")

	// ErrUnitNotFound indicates the organizational unit was not found.
	ErrUnitNotFound = errors.New("organizational unit not found")

	// ErrStageTypeNotFound indicates the stage type was not found.
	ErrStageTypeNotFound = errors.New("stage type not found")

	// ErrInvalidEntry indicates a catalog entry is malformed.
	ErrInvalidEntry = errors.New("invalid catalog entry")

	// ErrEntryExists indicates an entry with this ID already exists.
	ErrEntryExists = errors.New("catalog entry already exists")

	// ErrUnknownKind indicates the requested catalog kind does not exist.
	ErrUnknownKind = errors.New("unknown catalog kind")
)
