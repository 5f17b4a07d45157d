package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/legisflow/legisflow/domain/routing"
)

// SettingsStore is a Redis-backed implementation of routing.Settings.
// All settings live in a single hash so they can be shared by every engine
// process pointed at the same server.
type SettingsStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewSettingsStore creates a settings store from the configuration.
func NewSettingsStore(cfg Config, opts ...ConfigOption) (*SettingsStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewSettingsStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewSettingsStoreFromClient creates a settings store from an existing client.
func NewSettingsStoreFromClient(client redis.Cmdable, keyPrefix string) *SettingsStore {
	return &SettingsStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// hashKey returns the key of the settings hash.
func (s *SettingsStore) hashKey() string {
	return s.keyPrefix + "settings"
}

// Seed stores every value that is not already present.
func (s *SettingsStore) Seed(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.HSetNX(ctx, s.hashKey(), k, v)
		}
		return nil
	})
	return wrapError(err)
}

// Get returns a setting value.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	v, err := s.client.HGet(ctx, s.hashKey(), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", routing.ErrSettingNotFound
		}
		return "", wrapError(err)
	}
	return v, nil
}

// Set stores a setting value.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapError(s.client.HSet(ctx, s.hashKey(), key, value).Err())
}

// All returns every setting.
func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values, err := s.client.HGetAll(ctx, s.hashKey()).Result()
	if err != nil {
		return nil, wrapError(err)
	}
	return values, nil
}

// wrapError wraps Redis errors with ErrConnectionFailed.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrConnectionFailed, err)
}

var _ routing.Settings = (*SettingsStore)(nil)
