package catalog

import "context"

// Store persists the catalog registries.
type Store interface {
	// SaveProposalType persists a new proposal type.
	SaveProposalType(ctx context.Context, p *ProposalType) error

	// GetProposalType retrieves a proposal type by ID.
	GetProposalType(ctx context.Context, id string) (*ProposalType, error)

	// ListProposalTypes returns proposal types ordered by display order.
	ListProposalTypes(ctx context.Context, filter ListFilter) ([]*ProposalType, error)

	// SaveUnit persists a new organizational unit.
	SaveUnit(ctx context.Context, u *Unit) error

	// GetUnit retrieves a unit by ID.
	GetUnit(ctx context.Context, id string) (*Unit, error)

	// ListUnits returns units ordered by display order.
	ListUnits(ctx context.Context, filter ListFilter) ([]*Unit, error)

	// SaveStageType persists a new stage type.
	SaveStageType(ctx context.Context, s *StageType) error

	// GetStageType retrieves a stage type by ID.
	GetStageType(ctx context.Context, id string) (*StageType, error)

	// ListStageTypes returns stage types ordered by display order.
	ListStageTypes(ctx context.Context, filter ListFilter) ([]*StageType, error)
}

// ListFilter filters catalog queries.
type ListFilter struct {
	// ActiveOnly skips inactive entries. Stage types have no active flag
	// and ignore it.
	ActiveOnly bool
}
