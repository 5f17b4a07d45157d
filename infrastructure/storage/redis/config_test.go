package redis

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Address != "localhost:6379" || cfg.KeyPrefix != "legisflow:" {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.DialTimeout != 5*time.Second || cfg.PoolSize != 10 {
		t.Errorf("DefaultConfig() pool/timeouts = %v/%d", cfg.DialTimeout, cfg.PoolSize)
	}
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []ConfigOption{
		WithAddress("cache:6380"),
		WithPassword("secret"),
		WithDB(2),
		WithKeyPrefix("chamber:"),
		WithPoolSize(4),
		WithTimeouts(time.Second, 2*time.Second, 3*time.Second),
		WithDB(5),
	} {
		opt(&cfg)
	}

	want := Config{
		Address:      "cache:6380",
		Password:     "secret",
		DB:           5,
		MaxRetries:   3,
		DialTimeout:  time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MinIdleConns: 2,
		KeyPrefix:    "chamber:",
	}
	if cfg != want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := NewClient(DefaultConfig(),
		WithAddress("127.0.0.1:1"),
		WithTimeouts(200*time.Millisecond, 200*time.Millisecond, 200*time.Millisecond),
	)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("NewClient() error = %v, want ErrConnectionFailed", err)
	}
}
