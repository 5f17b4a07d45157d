// Package postgres provides PostgreSQL-backed implementations of the stage,
// history and notification stores.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the PostgreSQL connection pool.
type Config struct {
	// DSN overrides the individual connection fields when set.
	DSN string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration

	// Schema qualifies every table name.
	Schema string
}

// ConfigOption configures a Config.
type ConfigOption func(*Config)

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		Database:        "legisflow",
		User:            "postgres",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		Schema:          "public",
	}
}

// WithDSN sets a full connection string.
func WithDSN(dsn string) ConfigOption {
	return func(c *Config) {
		c.DSN = dsn
	}
}

// WithHost sets the database host.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPort sets the database port.
func WithPort(port int) ConfigOption {
	return func(c *Config) {
		c.Port = port
	}
}

// WithDatabase sets the database name.
func WithDatabase(name string) ConfigOption {
	return func(c *Config) {
		c.Database = name
	}
}

// WithCredentials sets the user and password.
func WithCredentials(user, password string) ConfigOption {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

// WithSSLMode sets the SSL mode.
func WithSSLMode(mode string) ConfigOption {
	return func(c *Config) {
		c.SSLMode = mode
	}
}

// WithPoolSize sets the minimum and maximum pool size.
func WithPoolSize(minConns, maxConns int32) ConfigOption {
	return func(c *Config) {
		c.MinConns = minConns
		c.MaxConns = maxConns
	}
}

// WithSchema sets the schema.
func WithSchema(schema string) ConfigOption {
	return func(c *Config) {
		c.Schema = schema
	}
}

// ConnectionString returns the libpq connection string.
func (c Config) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}

// Errors
var (
	ErrConnectionFailed = errors.New("postgres: connection failed")
	ErrOperationTimeout = errors.New("postgres: operation timed out")
	ErrMigrationFailed  = errors.New("postgres: migration failed")
)

// NewPool opens a connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg Config, opts ...ConfigOption) (*pgxpool.Pool, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return pool, nil
}

// Migrate creates the schema and tables used by the stores.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if schema == "" {
		schema = "public"
	}
	for _, stmt := range schemaStatements(schema) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Join(ErrMigrationFailed, err)
		}
	}
	return nil
}

func schemaStatements(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.stages (
			id TEXT PRIMARY KEY,
			proposal_id TEXT NOT NULL,
			status TEXT NOT NULL,
			entered_at TIMESTAMPTZ NOT NULL,
			deadline TIMESTAMPTZ,
			data JSONB NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_stages_proposal ON %s.stages (proposal_id, entered_at)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.stage_history (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			stage_id TEXT NOT NULL,
			proposal_id TEXT NOT NULL,
			action TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			data JSONB NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_history_proposal ON %s.stage_history (proposal_id)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.notifications (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			stage_id TEXT NOT NULL,
			proposal_id TEXT NOT NULL,
			status TEXT NOT NULL,
			data JSONB NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_notifications_status ON %s.notifications (status)`, schema),
	}
}

// isUniqueViolation checks for a unique_violation (23505) error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// wrapError wraps database errors with package errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrOperationTimeout, err)
	}

	return errors.Join(ErrConnectionFailed, err)
}

// whereBuilder accumulates numbered placeholder conditions.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (b *whereBuilder) add(expr string, arg any) {
	b.args = append(b.args, arg)
	b.conditions = append(b.conditions, fmt.Sprintf(expr, len(b.args)))
}

func (b *whereBuilder) clause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	out := " WHERE " + b.conditions[0]
	for _, c := range b.conditions[1:] {
		out += " AND " + c
	}
	return out
}
