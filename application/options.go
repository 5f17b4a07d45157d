package application

import (
	"time"

	"github.com/legisflow/legisflow/domain/catalog"
	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/domain/stage"
	tracing "github.com/legisflow/legisflow/domain/telemetry"
	"github.com/legisflow/legisflow/infrastructure/distributed/lock"
	"github.com/legisflow/legisflow/infrastructure/telemetry"
)

// Option configures the engine.
type Option func(*EngineConfig)

// WithCatalog sets the catalog registries.
func WithCatalog(s catalog.Store) Option {
	return func(c *EngineConfig) {
		c.Catalog = s
	}
}

// WithStageStore sets the stage store.
func WithStageStore(s stage.Store) Option {
	return func(c *EngineConfig) {
		c.Stages = s
	}
}

// WithHistoryStore sets the history recorder.
func WithHistoryStore(s history.Store) Option {
	return func(c *EngineConfig) {
		c.History = s
	}
}

// WithNotificationStore sets the notification recorder.
func WithNotificationStore(s notification.Store) Option {
	return func(c *EngineConfig) {
		c.Notifications = s
	}
}

// WithRoutingStore sets the routing rule store.
func WithRoutingStore(s routing.Store) Option {
	return func(c *EngineConfig) {
		c.Routing = s
	}
}

// WithSettings sets the routing settings store.
func WithSettings(s routing.Settings) Option {
	return func(c *EngineConfig) {
		c.Settings = s
	}
}

// WithClock sets the clock used for timestamps and deadlines.
func WithClock(now func() time.Time) Option {
	return func(c *EngineConfig) {
		c.Clock = now
	}
}

// WithLocation sets the timezone business days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(c *EngineConfig) {
		c.Location = loc
	}
}

// WithLenientTransitions disables state machine enforcement.
func WithLenientTransitions() Option {
	return func(c *EngineConfig) {
		c.Lenient = true
	}
}

// WithFallbackUnit sets the unit used when no other destination unit applies.
func WithFallbackUnit(unitID string) Option {
	return func(c *EngineConfig) {
		c.FallbackUnitID = unitID
	}
}

// WithLocker sets the distributed per-proposal locker.
func WithLocker(l lock.Locker, ttl time.Duration) Option {
	return func(c *EngineConfig) {
		c.Locker = l
		c.LockTTL = ttl
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *EngineConfig) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer transitions report spans to.
func WithTracer(t tracing.Tracer) Option {
	return func(c *EngineConfig) {
		c.Tracer = t
	}
}

// NewEngineWithOptions creates an engine with functional options.
func NewEngineWithOptions(opts ...Option) (*Engine, error) {
	config := EngineConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewEngine(config)
}
