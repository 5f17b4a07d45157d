package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/legisflow/legisflow/domain/catalog"
)

// registry holds one catalog kind keyed by ID.
type registry[T catalog.Entry] struct {
	entries  map[string]T
	notFound error
	active   func(T) bool
	clone    func(T) T
}

func newRegistry[T catalog.Entry](notFound error, active func(T) bool, clone func(T) T) *registry[T] {
	return &registry[T]{
		entries:  make(map[string]T),
		notFound: notFound,
		active:   active,
		clone:    clone,
	}
}

func (r *registry[T]) save(e T) {
	r.entries[e.EntryID()] = r.clone(e)
}

func (r *registry[T]) get(id string) (T, error) {
	e, ok := r.entries[id]
	if !ok {
		var zero T
		return zero, r.notFound
	}
	return r.clone(e), nil
}

// list returns entries ordered by display order, then name.
func (r *registry[T]) list(activeOnly bool) []T {
	result := make([]T, 0, len(r.entries))
	for _, e := range r.entries {
		if activeOnly && !r.active(e) {
			continue
		}
		result = append(result, r.clone(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DisplayOrder() != result[j].DisplayOrder() {
			return result[i].DisplayOrder() < result[j].DisplayOrder()
		}
		if result[i].EntryName() != result[j].EntryName() {
			return result[i].EntryName() < result[j].EntryName()
		}
		return result[i].EntryID() < result[j].EntryID()
	})
	return result
}

// CatalogStore is an in-memory implementation of catalog.Store.
// Saving an existing ID replaces the entry.
type CatalogStore struct {
	proposalTypes *registry[*catalog.ProposalType]
	units         *registry[*catalog.Unit]
	stageTypes    *registry[*catalog.StageType]
	mu            sync.RWMutex
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		proposalTypes: newRegistry(catalog.ErrProposalTypeNotFound,
			func(p *catalog.ProposalType) bool { return p.Active },
			func(p *catalog.ProposalType) *catalog.ProposalType { c := *p; return &c }),
		units: newRegistry(catalog.ErrUnitNotFound,
			func(u *catalog.Unit) bool { return u.Active },
			func(u *catalog.Unit) *catalog.Unit { c := *u; return &c }),
		stageTypes: newRegistry(catalog.ErrStageTypeNotFound,
			func(*catalog.StageType) bool { return true },
			func(s *catalog.StageType) *catalog.StageType { c := *s; return &c }),
	}
}

// SaveProposalType stores a proposal type.
func (s *CatalogStore) SaveProposalType(ctx context.Context, p *catalog.ProposalType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposalTypes.save(p)
	return nil
}

// GetProposalType retrieves a proposal type by ID.
func (s *CatalogStore) GetProposalType(ctx context.Context, id string) (*catalog.ProposalType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proposalTypes.get(id)
}

// ListProposalTypes lists proposal types by display order.
func (s *CatalogStore) ListProposalTypes(ctx context.Context, filter catalog.ListFilter) ([]*catalog.ProposalType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proposalTypes.list(filter.ActiveOnly), nil
}

// SaveUnit stores an organizational unit.
func (s *CatalogStore) SaveUnit(ctx context.Context, u *catalog.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units.save(u)
	return nil
}

// GetUnit retrieves an organizational unit by ID.
func (s *CatalogStore) GetUnit(ctx context.Context, id string) (*catalog.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units.get(id)
}

// ListUnits lists organizational units by display order.
func (s *CatalogStore) ListUnits(ctx context.Context, filter catalog.ListFilter) ([]*catalog.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units.list(filter.ActiveOnly), nil
}

// SaveStageType stores a stage type.
func (s *CatalogStore) SaveStageType(ctx context.Context, st *catalog.StageType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stageTypes.save(st)
	return nil
}

// GetStageType retrieves a stage type by ID.
func (s *CatalogStore) GetStageType(ctx context.Context, id string) (*catalog.StageType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stageTypes.get(id)
}

// ListStageTypes lists stage types by display order. Stage types carry no
// active flag, so ActiveOnly has no effect.
func (s *CatalogStore) ListStageTypes(ctx context.Context, filter catalog.ListFilter) ([]*catalog.StageType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stageTypes.list(filter.ActiveOnly), nil
}

var _ catalog.Store = (*CatalogStore)(nil)
