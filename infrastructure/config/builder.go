package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/legisflow/legisflow/application"
	"github.com/legisflow/legisflow/domain/archive"
	"github.com/legisflow/legisflow/domain/catalog"
	domainconfig "github.com/legisflow/legisflow/domain/config"
	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/domain/stage"
	tracing "github.com/legisflow/legisflow/domain/telemetry"
	infraarchive "github.com/legisflow/legisflow/infrastructure/archive"
	"github.com/legisflow/legisflow/infrastructure/distributed/lock"
	"github.com/legisflow/legisflow/infrastructure/logging"
	infranotif "github.com/legisflow/legisflow/infrastructure/notification"
	"github.com/legisflow/legisflow/infrastructure/observability"
	"github.com/legisflow/legisflow/infrastructure/storage/badger"
	"github.com/legisflow/legisflow/infrastructure/storage/memory"
	"github.com/legisflow/legisflow/infrastructure/storage/postgres"
	"github.com/legisflow/legisflow/infrastructure/storage/redis"
	"github.com/legisflow/legisflow/infrastructure/storage/sqlite"
	"github.com/legisflow/legisflow/infrastructure/telemetry"
)

// FallbackChannel is the endpoint channel that receives notifications whose
// channel has no endpoint of its own.
const FallbackChannel = "*"

// Builder builds the runtime components described by a configuration.
type Builder struct {
	config  *domainconfig.Config
	metrics telemetry.Metrics
	clock   func() time.Time
	notify  infranotif.BatchNotifier
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMetrics sets the metrics recorder shared by the engine and dispatcher.
func WithMetrics(m telemetry.Metrics) BuilderOption {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithClock sets the engine clock.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.clock = now
	}
}

// WithDispatchNotifier replaces the dispatcher's HTTP sender.
func WithDispatchNotifier(n infranotif.BatchNotifier) BuilderOption {
	return func(b *Builder) {
		b.notify = n
	}
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.Config, opts ...BuilderOption) *Builder {
	b := &Builder{config: config}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())
	}
	return b
}

// Runtime holds the components built from a configuration.
type Runtime struct {
	Engine        *application.Engine
	Stages        stage.Store
	History       history.Store
	Notifications notification.Store
	Settings      routing.Settings

	// Dispatcher is nil when notification dispatch is disabled.
	Dispatcher *infranotif.Dispatcher

	// Archive is nil when no archive backend is configured.
	Archive archive.Store

	closers []func() error
}

func (r *Runtime) onClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Close releases connections in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Build opens the configured backends, creates the engine and seeds the
// catalog and routing rules. Close the runtime when done.
func (b *Builder) Build(ctx context.Context) (*Runtime, error) {
	rt := &Runtime{}
	built := false
	defer func() {
		if !built {
			_ = rt.Close()
		}
	}()

	if err := b.buildStores(ctx, rt); err != nil {
		return nil, fmt.Errorf("%w: storage: %v", domainconfig.ErrBuildFailed, err)
	}
	if err := b.buildSettings(ctx, rt); err != nil {
		return nil, fmt.Errorf("%w: settings: %v", domainconfig.ErrBuildFailed, err)
	}

	opts, err := b.engineOptions(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("%w: engine: %v", domainconfig.ErrBuildFailed, err)
	}
	rt.Engine, err = application.NewEngineWithOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: engine: %v", domainconfig.ErrBuildFailed, err)
	}

	if err := b.seed(ctx, rt.Engine); err != nil {
		return nil, fmt.Errorf("%w: seed: %v", domainconfig.ErrBuildFailed, err)
	}

	if b.config.Notification.Enabled {
		rt.Dispatcher = b.buildDispatcher(rt)
	}

	if b.config.Archive.Backend != "" {
		if err := b.buildArchive(ctx, rt); err != nil {
			return nil, fmt.Errorf("%w: archive: %v", domainconfig.ErrBuildFailed, err)
		}
	}

	logging.Info().
		Add(logging.Component("builder")).
		Add(logging.Str("storage", b.storageBackend())).
		Add(logging.Str("lock", b.config.Lock.Backend)).
		Add(logging.Str("archive", b.config.Archive.Backend)).
		Msg("runtime built")

	built = true
	return rt, nil
}

func (b *Builder) storageBackend() string {
	if b.config.Storage.Backend == "" {
		return domainconfig.BackendMemory
	}
	return b.config.Storage.Backend
}

func (b *Builder) buildStores(ctx context.Context, rt *Runtime) error {
	cfg := b.config.Storage
	switch b.storageBackend() {
	case domainconfig.BackendMemory:
		rt.Stages = memory.NewStageStore()
		rt.History = memory.NewHistoryStore()
		rt.Notifications = memory.NewNotificationStore()

	case domainconfig.BackendSQLite:
		opts := []sqlite.Option{sqlite.WithPath(cfg.SQLite.Path)}
		if d := cfg.SQLite.BusyTimeout.Duration(); d > 0 {
			opts = append(opts, sqlite.WithBusyTimeout(int(d.Milliseconds())))
		}
		db, err := sqlite.Open(sqlite.DefaultConfig(), opts...)
		if err != nil {
			return err
		}
		rt.onClose(db.Close)

		if rt.Stages, err = sqlite.NewStageStoreFromDB(db); err != nil {
			return err
		}
		if rt.History, err = sqlite.NewHistoryStoreFromDB(db); err != nil {
			return err
		}
		if rt.Notifications, err = sqlite.NewNotificationStoreFromDB(db); err != nil {
			return err
		}

	case domainconfig.BackendPostgres:
		pgCfg := postgres.DefaultConfig()
		opts := []postgres.ConfigOption{postgres.WithDSN(cfg.Postgres.DSN)}
		if cfg.Postgres.Schema != "" {
			opts = append(opts, postgres.WithSchema(cfg.Postgres.Schema))
		}
		if cfg.Postgres.MaxConns > 0 {
			opts = append(opts, postgres.WithPoolSize(pgCfg.MinConns, int32(cfg.Postgres.MaxConns)))
		}
		for _, opt := range opts {
			opt(&pgCfg)
		}

		pool, err := postgres.NewPool(ctx, pgCfg)
		if err != nil {
			return err
		}
		rt.onClose(func() error {
			pool.Close()
			return nil
		})
		if err := postgres.Migrate(ctx, pool, pgCfg.Schema); err != nil {
			return err
		}
		rt.Stages = postgres.NewStageStore(pool, pgCfg.Schema)
		rt.History = postgres.NewHistoryStore(pool, pgCfg.Schema)
		rt.Notifications = postgres.NewNotificationStore(pool, pgCfg.Schema)

	case domainconfig.BackendBadger:
		bCfg := badger.DefaultConfig()
		bCfg.Dir = cfg.Badger.Dir
		bCfg.InMemory = cfg.Badger.InMemory
		bCfg.SyncWrites = cfg.Badger.SyncWrites

		db, err := badger.Open(bCfg)
		if err != nil {
			return err
		}
		rt.onClose(db.Close)
		rt.Stages = db.Stages()
		rt.History = db.History()
		rt.Notifications = db.Notifications()

	default:
		return fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
	return nil
}

func (b *Builder) buildSettings(ctx context.Context, rt *Runtime) error {
	cfg := b.config.Storage.SettingsStore
	switch cfg.Backend {
	case "", domainconfig.BackendMemory:
		rt.Settings = memory.NewSettingsStore(b.config.Settings)
		return nil

	case domainconfig.BackendRedis:
		rCfg := redis.DefaultConfig()
		rCfg.Address = cfg.Redis.Addr
		rCfg.Password = cfg.Redis.Password
		rCfg.DB = cfg.Redis.DB
		if cfg.Redis.KeyPrefix != "" {
			rCfg.KeyPrefix = cfg.Redis.KeyPrefix
		}

		client, err := redis.NewClient(rCfg)
		if err != nil {
			return err
		}
		rt.onClose(client.Close)

		store := redis.NewSettingsStoreFromClient(client, rCfg.KeyPrefix)
		if err := store.Seed(ctx, b.config.Settings); err != nil {
			return err
		}
		rt.Settings = store
		return nil

	default:
		return fmt.Errorf("unknown settings backend: %s", cfg.Backend)
	}
}

func (b *Builder) buildLocker(ctx context.Context, rt *Runtime) (lock.Locker, error) {
	cfg := b.config.Lock
	switch cfg.Backend {
	case "", domainconfig.BackendNone:
		return nil, nil
	case domainconfig.BackendMemory:
		return lock.NewMemoryLock(), nil
	case domainconfig.BackendRedis:
		lCfg := lock.DefaultRedisConfig()
		lCfg.Address = cfg.Redis.Addr
		lCfg.Password = cfg.Redis.Password
		lCfg.DB = cfg.Redis.DB
		if cfg.Redis.KeyPrefix != "" {
			lCfg.KeyPrefix = cfg.Redis.KeyPrefix
		}

		l, err := lock.NewRedisLock(ctx, lCfg)
		if err != nil {
			return nil, err
		}
		rt.onClose(l.Close)
		return l, nil
	default:
		return nil, fmt.Errorf("unknown lock backend: %s", cfg.Backend)
	}
}

// buildTracer creates the tracing provider. Stdout spans go to stderr so
// command output stays parseable.
func (b *Builder) buildTracer(rt *Runtime) (tracing.Tracer, error) {
	cfg := b.config.Tracing
	if !cfg.Enabled {
		return observability.NewNoopTracer(), nil
	}

	opts := []observability.Option{
		observability.WithServiceVersion(b.config.Version),
	}
	if cfg.Environment != "" {
		opts = append(opts, observability.WithEnvironment(cfg.Environment))
	}
	switch cfg.Exporter {
	case domainconfig.ExporterOTLP:
		opts = append(opts, observability.WithTracing(observability.ExporterOTLP, cfg.Endpoint))
		if cfg.Insecure {
			opts = append(opts, observability.WithTracingInsecure())
		}
	case domainconfig.ExporterStdout:
		opts = append(opts, observability.WithStdoutTracing(os.Stderr))
	default:
		opts = append(opts, observability.WithTracing(observability.ExporterNoop, ""))
	}
	if cfg.SampleRate > 0 {
		opts = append(opts, observability.WithSampleRate(cfg.SampleRate))
	}

	provider, err := observability.New(opts...)
	if err != nil {
		return nil, err
	}
	rt.onClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(ctx)
	})
	return provider.Tracer(), nil
}

func (b *Builder) engineOptions(ctx context.Context, rt *Runtime) ([]application.Option, error) {
	opts := []application.Option{
		application.WithCatalog(memory.NewCatalogStore()),
		application.WithRoutingStore(memory.NewRoutingStore()),
		application.WithStageStore(rt.Stages),
		application.WithHistoryStore(rt.History),
		application.WithNotificationStore(rt.Notifications),
		application.WithSettings(rt.Settings),
		application.WithMetrics(b.metrics),
	}

	tracer, err := b.buildTracer(rt)
	if err != nil {
		return nil, err
	}
	opts = append(opts, application.WithTracer(tracer))

	engine := b.config.Engine
	if engine.Timezone != "" {
		loc, err := time.LoadLocation(engine.Timezone)
		if err != nil {
			return nil, err
		}
		opts = append(opts, application.WithLocation(loc))
	}
	if engine.Lenient {
		opts = append(opts, application.WithLenientTransitions())
	}
	if engine.FallbackUnitID != "" {
		opts = append(opts, application.WithFallbackUnit(engine.FallbackUnitID))
	}
	if b.clock != nil {
		opts = append(opts, application.WithClock(b.clock))
	}

	locker, err := b.buildLocker(ctx, rt)
	if err != nil {
		return nil, err
	}
	if locker != nil {
		opts = append(opts, application.WithLocker(locker, b.config.Lock.TTL.Duration()))
	}
	return opts, nil
}

func (b *Builder) seed(ctx context.Context, engine *application.Engine) error {
	c := b.config.Catalog
	proposalTypes := make([]*catalog.ProposalType, len(c.ProposalTypes))
	for i := range c.ProposalTypes {
		p := c.ProposalTypes[i]
		proposalTypes[i] = &p
	}
	units := make([]*catalog.Unit, len(c.Units))
	for i := range c.Units {
		u := c.Units[i]
		units[i] = &u
	}
	stageTypes := make([]*catalog.StageType, len(c.StageTypes))
	for i := range c.StageTypes {
		s := c.StageTypes[i]
		stageTypes[i] = &s
	}
	if err := engine.SeedCatalog(ctx, proposalTypes, units, stageTypes); err != nil {
		return err
	}

	rules := make([]*routing.Rule, 0, len(b.config.Rules))
	steps := make(map[string][]*routing.Step, len(b.config.Rules))
	for _, rc := range b.config.Rules {
		rules = append(rules, rc.Rule())
		steps[rc.ID] = rc.RuleSteps()
	}
	_, err := engine.LoadRules(ctx, rules, steps)
	return err
}

// Endpoints converts endpoint configuration into the dispatcher's endpoint
// table. The endpoint on FallbackChannel becomes the fallback.
func Endpoints(cfg domainconfig.NotificationConfig) (map[string]*notification.Endpoint, *notification.Endpoint) {
	endpoints := make(map[string]*notification.Endpoint, len(cfg.Endpoints))
	var fallback *notification.Endpoint
	for _, ec := range cfg.Endpoints {
		ep := &notification.Endpoint{
			Name:    ec.Name,
			URL:     ec.URL,
			Secret:  ec.Secret,
			Headers: ec.Headers,
			Enabled: ec.Enabled,
		}
		if ec.Channel == FallbackChannel {
			fallback = ep
			continue
		}
		endpoints[ec.Channel] = ep
	}
	return endpoints, fallback
}

// SenderConfig converts notification configuration into sender settings.
func SenderConfig(cfg domainconfig.NotificationConfig) infranotif.SenderConfig {
	sc := infranotif.DefaultSenderConfig()
	if d := cfg.Timeout.Duration(); d > 0 {
		sc.Timeout = d
	}
	if cfg.Retry.MaxAttempts > 0 {
		sc.MaxRetries = cfg.Retry.MaxAttempts
	}
	if d := cfg.Retry.InitialDelay.Duration(); d > 0 {
		sc.RetryDelay = d
	}
	if cfg.CircuitBreaker.Threshold > 0 {
		sc.CircuitBreakerThreshold = cfg.CircuitBreaker.Threshold
	}
	if d := cfg.CircuitBreaker.Timeout.Duration(); d > 0 {
		sc.CircuitBreakerTimeout = d
	}
	return sc
}

func (b *Builder) buildDispatcher(rt *Runtime) *infranotif.Dispatcher {
	cfg := b.config.Notification
	endpoints, fallback := Endpoints(cfg)

	opts := []infranotif.DispatcherOption{infranotif.WithDispatchMetrics(b.metrics)}
	if b.notify != nil {
		opts = append(opts, infranotif.WithNotifier(b.notify))
	}

	return infranotif.NewDispatcher(rt.Notifications, rt.Settings, infranotif.DispatcherConfig{
		Endpoints: endpoints,
		Fallback:  fallback,
		BatchSize: cfg.BatchSize,
		Sender:    SenderConfig(cfg),
	}, opts...)
}

func (b *Builder) buildArchive(ctx context.Context, rt *Runtime) error {
	cfg := b.config.Archive

	var (
		client infraarchive.Client
		err    error
	)
	switch cfg.Backend {
	case domainconfig.ArchiveFile:
		client, err = infraarchive.NewFileClient(cfg.Dir)
	case domainconfig.ArchiveS3:
		client, err = infraarchive.NewS3Client(ctx, infraarchive.S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
			Endpoint:        cfg.S3.Endpoint,
		})
	case domainconfig.ArchiveGCS:
		var gcs *infraarchive.GCSClient
		gcs, err = infraarchive.NewGCSClient(ctx, infraarchive.GCSConfig{
			Bucket:          cfg.Bucket,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
		if err == nil {
			rt.onClose(gcs.Close)
			client = gcs
		}
	case domainconfig.ArchiveAzure:
		client, err = infraarchive.NewAzureClient(infraarchive.AzureConfig{
			Container:        cfg.Bucket,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
		})
	default:
		err = fmt.Errorf("unknown archive backend: %s", cfg.Backend)
	}
	if err != nil {
		return err
	}

	store, err := infraarchive.NewStore(client, cfg.Prefix)
	if err != nil {
		return err
	}
	rt.Archive = store
	return nil
}
