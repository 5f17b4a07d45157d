// Package config provides domain models for stage engine configuration.
package config

import (
	"time"

	"github.com/legisflow/legisflow/domain/catalog"
	"github.com/legisflow/legisflow/domain/routing"
)

// Config represents the complete engine configuration.
type Config struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`

	// Engine contains transition engine settings.
	Engine EngineSettings `json:"engine,omitempty" yaml:"engine,omitempty"`
	// Storage selects and configures the persistence backend.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	// Lock configures cross-process serialization of transitions.
	Lock LockConfig `json:"lock,omitempty" yaml:"lock,omitempty"`
	// Logging configures the process logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Tracing configures OpenTelemetry span export for transitions.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	// Notification configures webhook dispatch of pending notifications.
	Notification NotificationConfig `json:"notification,omitempty" yaml:"notification,omitempty"`
	// Archive configures where exported snapshots are kept.
	Archive ArchiveConfig `json:"archive,omitempty" yaml:"archive,omitempty"`

	// Settings is the flat routing configuration.
	Settings map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`
	// Catalog seeds the reference registries.
	Catalog CatalogConfig `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	// Rules seeds the routing rules.
	Rules []RuleConfig `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// EngineSettings contains transition engine settings.
type EngineSettings struct {
	// Lenient disables state machine enforcement and leaves transition
	// preconditions to the caller.
	Lenient bool `json:"lenient,omitempty" yaml:"lenient,omitempty"`
	// FallbackUnitID is used when a destination step resolves no unit.
	FallbackUnitID string `json:"fallback_unit_id,omitempty" yaml:"fallback_unit_id,omitempty"`
	// Timezone names the location deadlines are computed in.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
	BackendNone     = "none"
)

// Archive backends.
const (
	ArchiveFile  = "file"
	ArchiveS3    = "s3"
	ArchiveGCS   = "gcs"
	ArchiveAzure = "azure"
)

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is memory, sqlite, postgres or badger (default: memory).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	// Postgres configures the postgres backend.
	Postgres PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
	// Badger configures the badger backend.
	Badger BadgerConfig `json:"badger,omitempty" yaml:"badger,omitempty"`
	// SettingsStore selects where routing settings live.
	SettingsStore SettingsStoreConfig `json:"settings_store,omitempty" yaml:"settings_store,omitempty"`
}

// BadgerConfig configures the badger backend.
type BadgerConfig struct {
	// Dir is the data directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// InMemory keeps all data in memory.
	InMemory bool `json:"in_memory,omitempty" yaml:"in_memory,omitempty"`
	// SyncWrites fsyncs every write.
	SyncWrites bool `json:"sync_writes,omitempty" yaml:"sync_writes,omitempty"`
}

// SettingsStoreConfig selects where routing settings live.
type SettingsStoreConfig struct {
	// Backend is memory or redis (default: memory).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Redis configures the redis settings backend.
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// ArchiveConfig configures where exported snapshots are kept.
type ArchiveConfig struct {
	// Backend is file, s3, gcs or azure. Empty disables archiving.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Dir is the root directory of the file backend.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Bucket is the bucket or container name of the cloud backends.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	S3    S3Config    `json:"s3,omitempty" yaml:"s3,omitempty"`
	GCS   GCSConfig   `json:"gcs,omitempty" yaml:"gcs,omitempty"`
	Azure AzureConfig `json:"azure,omitempty" yaml:"azure,omitempty"`
}

// S3Config configures the s3 archive backend. Empty credentials use the
// default AWS credential chain.
type S3Config struct {
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
	SessionToken    string `json:"session_token,omitempty" yaml:"session_token,omitempty"`
}

// GCSConfig configures the gcs archive backend. An empty credentials file
// uses Application Default Credentials.
type GCSConfig struct {
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`
}

// AzureConfig configures the azure archive backend. Without a key or
// connection string the default Azure credential is used.
type AzureConfig struct {
	AccountName      string `json:"account_name,omitempty" yaml:"account_name,omitempty"`
	AccountKey       string `json:"account_key,omitempty" yaml:"account_key,omitempty"`
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// BusyTimeout is how long a writer waits for a locked database.
	BusyTimeout Duration `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	// DSN is the connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Schema is the database schema (default: public).
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
	// MaxConns caps the pool size.
	MaxConns int `json:"max_conns,omitempty" yaml:"max_conns,omitempty"`
}

// LockConfig configures cross-process serialization of transitions.
type LockConfig struct {
	// Backend is none, memory or redis (default: none).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// TTL bounds how long a proposal lock is held.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Redis configures the redis lock backend.
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// RedisConfig configures a redis connection.
type RedisConfig struct {
	Addr      string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int    `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error (default: info).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console (default: json).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Trace exporters.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNoop   = "noop"
)

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Exporter is otlp, stdout or noop (default: noop).
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is between 0 and 1. Zero samples every span.
	SampleRate  float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	Environment string  `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// NotificationConfig configures webhook dispatch.
type NotificationConfig struct {
	// Enabled enables dispatch.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Endpoints is the list of webhook endpoints, one per channel.
	Endpoints []EndpointConfig `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	// Timeout is the HTTP request timeout.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// BatchSize caps how many pending notifications one dispatch drains.
	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	// Retry configures delivery retries.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures the per-endpoint circuit breaker.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// EndpointConfig configures a webhook endpoint.
type EndpointConfig struct {
	// Name is a human-readable name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Channel is the notification channel routed to this endpoint.
	Channel string `json:"channel" yaml:"channel"`
	// URL is the webhook URL.
	URL string `json:"url" yaml:"url"`
	// Enabled enables the endpoint.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Secret is the HMAC signing secret.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
	// Headers are additional HTTP headers.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum retry attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Threshold is consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// CatalogConfig seeds the reference registries.
type CatalogConfig struct {
	ProposalTypes []catalog.ProposalType `json:"proposal_types,omitempty" yaml:"proposal_types,omitempty"`
	Units         []catalog.Unit         `json:"units,omitempty" yaml:"units,omitempty"`
	StageTypes    []catalog.StageType    `json:"stage_types,omitempty" yaml:"stage_types,omitempty"`
}

// RuleConfig declares a routing rule with its steps.
type RuleConfig struct {
	ID          string                       `json:"id" yaml:"id"`
	Name        string                       `json:"name" yaml:"name"`
	Description string                       `json:"description,omitempty" yaml:"description,omitempty"`
	Conditions  map[string]routing.Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	// Inactive disables the rule; rules are active by default.
	Inactive bool           `json:"inactive,omitempty" yaml:"inactive,omitempty"`
	Order    int            `json:"order,omitempty" yaml:"order,omitempty"`
	Steps    []routing.Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Rule converts the declaration to a routing rule.
func (r RuleConfig) Rule() *routing.Rule {
	return &routing.Rule{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Conditions:  r.Conditions,
		Active:      !r.Inactive,
		Order:       r.Order,
	}
}

// RuleSteps returns the declared steps bound to the rule. Steps without an
// explicit order take their 1-based list position.
func (r RuleConfig) RuleSteps() []*routing.Step {
	steps := make([]*routing.Step, 0, len(r.Steps))
	for i := range r.Steps {
		s := r.Steps[i].Clone()
		s.RuleID = r.ID
		if s.Order == 0 {
			s.Order = i + 1
		}
		steps = append(steps, s)
	}
	return steps
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
