package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the TTL only when the caller still owns the key.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisConfig holds configuration for the Redis lock.
type RedisConfig struct {
	// Address is the Redis server address (host:port).
	Address string

	// Password for Redis authentication.
	Password string

	// DB is the Redis database number.
	DB int

	// KeyPrefix is prepended to every lock key.
	KeyPrefix string

	// HolderID identifies this locker. Defaults to a random UUID.
	HolderID string
}

// DefaultRedisConfig returns a default configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:   "localhost:6379",
		KeyPrefix: "legisflow:lock:",
	}
}

// RedisLock implements Locker on Redis SET NX with owner-checked release.
type RedisLock struct {
	client   *redis.Client
	prefix   string
	holderID string
	options  lockOptions
}

// NewRedisLock connects to Redis and returns a locker.
func NewRedisLock(ctx context.Context, cfg RedisConfig, opts ...LockOption) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisLockFromClient(client, cfg, opts...), nil
}

// NewRedisLockFromClient wraps an existing client.
func NewRedisLockFromClient(client *redis.Client, cfg RedisConfig, opts ...LockOption) *RedisLock {
	holder := cfg.HolderID
	if holder == "" {
		holder = uuid.New().String()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisConfig().KeyPrefix
	}
	options := defaultLockOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &RedisLock{
		client:   client,
		prefix:   prefix,
		holderID: holder,
		options:  options,
	}
}

// ID returns the unique identifier for this locker.
func (l *RedisLock) ID() string {
	return l.holderID
}

func (l *RedisLock) key(key string) string {
	return l.prefix + key
}

// Acquire attempts to acquire the lock.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}

	ok, err := l.client.SetNX(ctx, l.key(key), l.holderID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if ok {
		return true, nil
	}

	// Reacquire by the same holder refreshes the TTL.
	owner, err := l.client.Get(ctx, l.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read lock owner: %w", err)
	}
	if owner != l.holderID {
		return false, nil
	}
	if err := l.Extend(ctx, key, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// Release releases the lock.
func (l *RedisLock) Release(ctx context.Context, key string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key(key)}, l.holderID).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend extends the TTL of a held lock.
func (l *RedisLock) Extend(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	n, err := extendScript.Run(ctx, l.client, []string{l.key(key)}, l.holderID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// IsHeld checks if the lock is currently held by anyone.
func (l *RedisLock) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lock: %w", err)
	}
	return n > 0, nil
}

// WithLock executes a function while holding the lock.
func (l *RedisLock) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	return withLock(ctx, l, l.options, key, ttl, fn)
}

// Close closes the Redis connection.
func (l *RedisLock) Close() error {
	return l.client.Close()
}

var _ Locker = (*RedisLock)(nil)
