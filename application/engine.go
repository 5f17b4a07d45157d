// Package application provides the stage engine that routes legislative
// proposals through organizational units.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/legisflow/legisflow/domain/catalog"
	"github.com/legisflow/legisflow/domain/deadline"
	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/domain/stage"
	tracing "github.com/legisflow/legisflow/domain/telemetry"
	"github.com/legisflow/legisflow/infrastructure/distributed/lock"
	"github.com/legisflow/legisflow/infrastructure/logging"
	"github.com/legisflow/legisflow/infrastructure/observability"
	"github.com/legisflow/legisflow/infrastructure/statemachine"
	"github.com/legisflow/legisflow/infrastructure/storage/memory"
	"github.com/legisflow/legisflow/infrastructure/telemetry"
)

var (
	// ErrInvalidDestination indicates advance needs a destination unit but
	// none is available.
	ErrInvalidDestination = errors.New("no destination unit available")

	// ErrMissingStore indicates a required store was not configured.
	ErrMissingStore = errors.New("store is required")
)

// DefaultLockTTL is the lease taken on a proposal while a transition runs.
const DefaultLockTTL = 30 * time.Second

// Engine orchestrates stage transitions. It resolves routing rules, computes
// deadlines and commits stage, history and notification writes as one unit.
type Engine struct {
	catalog       catalog.Store
	stages        stage.Store
	history       history.Store
	notifications notification.Store
	routing       routing.Store
	settings      routing.Settings

	clock          func() time.Time
	location       *time.Location
	lifecycle      *statemachine.Lifecycle
	lenient        bool
	fallbackUnitID string
	locker         lock.Locker
	lockTTL        time.Duration
	metrics        telemetry.Metrics
	tracer         tracing.Tracer

	// mu serialises writers within the process.
	mu sync.Mutex
}

// EngineConfig contains configuration for the engine.
type EngineConfig struct {
	Catalog       catalog.Store
	Stages        stage.Store
	History       history.Store
	Notifications notification.Store
	Routing       routing.Store
	Settings      routing.Settings

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Location is the timezone business days are counted in.
	Location *time.Location

	// Lenient disables state machine enforcement: finalize on a completed
	// stage and reopen on a non-completed stage are accepted.
	Lenient bool

	// FallbackUnitID is used when neither the step nor its stage type names
	// a destination unit and the caller supplied none.
	FallbackUnitID string

	// Locker serialises transitions on the same proposal across processes.
	Locker  lock.Locker
	LockTTL time.Duration

	Metrics telemetry.Metrics

	// Tracer records a span per transition. Defaults to a no-op tracer.
	Tracer tracing.Tracer
}

// NewEngine creates a new engine with the given configuration.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Catalog == nil {
		return nil, fmt.Errorf("catalog %w", ErrMissingStore)
	}
	if config.Stages == nil {
		return nil, fmt.Errorf("stage %w", ErrMissingStore)
	}
	if config.Routing == nil {
		return nil, fmt.Errorf("routing %w", ErrMissingStore)
	}

	lifecycle, err := statemachine.NewLifecycle()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		catalog:        config.Catalog,
		stages:         config.Stages,
		history:        config.History,
		notifications:  config.Notifications,
		routing:        config.Routing,
		settings:       config.Settings,
		clock:          config.Clock,
		location:       config.Location,
		lifecycle:      lifecycle,
		lenient:        config.Lenient,
		fallbackUnitID: config.FallbackUnitID,
		locker:         config.Locker,
		lockTTL:        config.LockTTL,
		metrics:        config.Metrics,
		tracer:         config.Tracer,
	}

	if e.history == nil {
		e.history = memory.NewHistoryStore()
	}
	if e.notifications == nil {
		e.notifications = memory.NewNotificationStore()
	}
	if e.settings == nil {
		e.settings = memory.NewSettingsStore(nil)
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.lockTTL <= 0 {
		e.lockTTL = DefaultLockTTL
	}
	if e.metrics == nil {
		e.metrics = &telemetry.NoopMetricsProvider{}
	}
	if e.tracer == nil {
		e.tracer = observability.NewNoopTracer()
	}

	return e, nil
}

// now returns the current time in the engine's location.
func (e *Engine) now() time.Time {
	t := e.clock()
	if e.location != nil {
		t = t.In(e.location)
	}
	return t
}

// calculator returns a deadline calculator bound to the engine clock.
func (e *Engine) calculator() deadline.Calculator {
	return deadline.New(e.now)
}

// Settings returns the routing settings store.
func (e *Engine) Settings() routing.Settings {
	return e.settings
}

// Lenient reports whether state machine enforcement is disabled.
func (e *Engine) Lenient() bool {
	return e.lenient
}

// withProposal runs fn while holding the in-process writer mutex and, when
// configured, the distributed lock for the proposal.
func (e *Engine) withProposal(ctx context.Context, proposalID string, fn func(ctx context.Context) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.locker == nil {
		return fn(ctx)
	}
	return e.locker.WithLock(ctx, lock.ProposalKey(proposalID), e.lockTTL, fn)
}

// withWriter runs fn while holding only the in-process writer mutex.
func (e *Engine) withWriter(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// checkTransition validates an event against the stage lifecycle unless the
// engine is lenient.
func (e *Engine) checkTransition(from stage.Status, event statekit.EventType) error {
	if e.lenient {
		return nil
	}
	_, err := e.lifecycle.Transition(from, event)
	return err
}

// ensureNoOpenStage returns stage.ErrStageInProgress when the proposal has an
// IN_PROGRESS instance other than exceptID.
func (e *Engine) ensureNoOpenStage(ctx context.Context, proposalID, exceptID string) error {
	if e.lenient {
		return nil
	}
	open, err := e.stages.List(ctx, stage.ListFilter{
		ProposalID: proposalID,
		Status:     []stage.Status{stage.StatusInProgress},
	})
	if err != nil {
		return err
	}
	for _, s := range open {
		if s.ID != exceptID {
			return fmt.Errorf("%w: %s", stage.ErrStageInProgress, s.ID)
		}
	}
	return nil
}

// resolveDeadline computes a deadline from an explicit day count, falling back
// to the stage type's regimental deadline. It returns nil when neither is
// positive. The stage type must exist either way.
func (e *Engine) resolveDeadline(ctx context.Context, stageTypeID string, explicitDays int) (*time.Time, error) {
	st, err := e.catalog.GetStageType(ctx, stageTypeID)
	if err != nil {
		return nil, err
	}

	calc := e.calculator()
	if explicitDays > 0 {
		return calc.AddBusinessDays(explicitDays), nil
	}
	if st.RegimentalDeadline > 0 {
		return calc.AddBusinessDays(st.RegimentalDeadline), nil
	}
	return nil, nil
}

// resolveUnit picks the destination unit: the step's unit, then the stage
// type's unit, then the fallback, then the first active unit. A unit taken
// from anywhere but the registry listing is checked against the catalog.
func (e *Engine) resolveUnit(ctx context.Context, stepUnitID, stageTypeID, fallbackUnitID string) (string, error) {
	unitID, err := e.pickUnit(ctx, stepUnitID, stageTypeID, fallbackUnitID)
	if err != nil {
		return "", err
	}
	if unitID != "" {
		if _, err := e.catalog.GetUnit(ctx, unitID); err != nil {
			return "", err
		}
		return unitID, nil
	}

	units, err := e.catalog.ListUnits(ctx, catalog.ListFilter{ActiveOnly: true})
	if err != nil {
		return "", err
	}
	if len(units) == 0 {
		return "", ErrInvalidDestination
	}
	return units[0].ID, nil
}

func (e *Engine) pickUnit(ctx context.Context, stepUnitID, stageTypeID, fallbackUnitID string) (string, error) {
	if stepUnitID != "" {
		return stepUnitID, nil
	}

	if stageTypeID != "" {
		st, err := e.catalog.GetStageType(ctx, stageTypeID)
		if err != nil {
			return "", err
		}
		if unit := st.ResponsibleUnit(); unit != "" {
			return unit, nil
		}
	}

	if fallbackUnitID != "" {
		return fallbackUnitID, nil
	}
	return e.fallbackUnitID, nil
}

// fail records an operation failure.
func (e *Engine) fail(ctx context.Context, operation string, err error, fields ...logging.Field) error {
	e.metrics.RecordError(ctx, operation)
	markSpanError(ctx, err)

	event := logging.Error().
		Add(logging.Operation(operation)).
		Add(logging.ErrorField(err))
	for _, f := range fields {
		event.Add(f)
	}
	event.Msg("stage operation failed")

	return err
}
