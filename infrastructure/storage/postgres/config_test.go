package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	want := Config{
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
	if got := DefaultConfig(); got != want {
		t.Errorf("DefaultConfig() = %+v, want %+v", got, want)
	}
}

func TestConfig_ConnectionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []ConfigOption
		want string
	}{
		{
			name: "defaults",
			want: "host=localhost port=5432 dbname=legisflow user=postgres password= sslmode=disable",
		},
		{
			name: "chamber database",
			opts: []ConfigOption{
				WithHost("db.chamber.example"),
				WithPort(5433),
				WithDatabase("tramitation"),
				WithCredentials("clerk", "p@ss=word"),
				WithSSLMode("verify-full"),
			},
			want: "host=db.chamber.example port=5433 dbname=tramitation user=clerk password=p@ss=word sslmode=verify-full",
		},
		{
			name: "dsn wins over fields",
			opts: []ConfigOption{
				WithHost("ignored"),
				WithDSN("postgres://legis:pw@db:5432/legis?sslmode=require"),
			},
			want: "postgres://legis:pw@db:5432/legis?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			for _, opt := range tt.opts {
				opt(&cfg)
			}
			if got := cfg.ConnectionString(); got != tt.want {
				t.Errorf("ConnectionString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPoolAndSchemaOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	WithPoolSize(1, 4)(&cfg)
	WithSchema("legis")(&cfg)

	if cfg.MinConns != 1 || cfg.MaxConns != 4 || cfg.Schema != "legis" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestSchemaStatements(t *testing.T) {
	t.Parallel()

	stmts := strings.Join(schemaStatements("legis"), "\n")
	for _, want := range []string{"SCHEMA IF NOT EXISTS legis", "legis.stages", "legis.stage_history", "legis.notifications"} {
		if !strings.Contains(stmts, want) {
			t.Errorf("no statement mentions %s", want)
		}
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
	if err := wrapError(context.DeadlineExceeded); !errors.Is(err, ErrOperationTimeout) {
		t.Errorf("wrapError(deadline) = %v, want ErrOperationTimeout", err)
	}
	if err := wrapError(errors.New("boom")); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("wrapError(boom) = %v, want ErrConnectionFailed", err)
	}

	if isUniqueViolation(errors.New("duplicate key")) {
		t.Error("plain errors are not unique violations")
	}
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("23505 should be a unique violation")
	}
}

func TestWhereBuilder(t *testing.T) {
	t.Parallel()

	var b whereBuilder
	if b.clause() != "" {
		t.Errorf("empty clause = %q", b.clause())
	}

	b.add("proposal_id = $%d", "p-1")
	b.add("status = $%d", "IN_PROGRESS")
	if got := b.clause(); got != " WHERE proposal_id = $1 AND status = $2" {
		t.Errorf("clause() = %q", got)
	}
	if len(b.args) != 2 || b.args[1] != "IN_PROGRESS" {
		t.Errorf("args = %v", b.args)
	}
}
