package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLockStore provides shared lock storage so several lockers in one
// process contend like separate engine processes would.
type MemoryLockStore struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewMemoryLockStore creates a new shared lock store.
func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{
		locks: make(map[string]*lockEntry),
	}
}

type lockEntry struct {
	holderID  string
	expiresAt time.Time
}

// MemoryLock implements Locker using in-memory storage.
// Useful for testing and single-node deployments.
type MemoryLock struct {
	store    *MemoryLockStore
	holderID string
	options  lockOptions
}

// MemoryLockOption configures the memory lock.
type MemoryLockOption func(*MemoryLock)

// WithHolderID sets the holder ID for this locker.
func WithHolderID(id string) MemoryLockOption {
	return func(l *MemoryLock) {
		l.holderID = id
	}
}

// WithStore sets a shared lock store.
func WithStore(store *MemoryLockStore) MemoryLockOption {
	return func(l *MemoryLock) {
		l.store = store
	}
}

// WithMemoryLockOptions sets acquisition options used by WithLock.
func WithMemoryLockOptions(opts ...LockOption) MemoryLockOption {
	return func(l *MemoryLock) {
		for _, opt := range opts {
			opt(&l.options)
		}
	}
}

// NewMemoryLock creates a new in-memory lock.
func NewMemoryLock(opts ...MemoryLockOption) *MemoryLock {
	l := &MemoryLock{
		store:    NewMemoryLockStore(),
		holderID: uuid.New().String(),
		options:  defaultLockOptions(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ID returns the unique identifier for this locker.
func (l *MemoryLock) ID() string {
	return l.holderID
}

// Acquire attempts to acquire the lock. The same holder may reacquire a key
// it already holds, which refreshes the TTL.
func (l *MemoryLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}

	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	now := time.Now()
	if entry, exists := l.store.locks[key]; exists {
		if entry.expiresAt.After(now) && entry.holderID != l.holderID {
			return false, nil
		}
	}

	l.store.locks[key] = &lockEntry{
		holderID:  l.holderID,
		expiresAt: now.Add(ttl),
	}
	return true, nil
}

// Release releases the lock.
func (l *MemoryLock) Release(ctx context.Context, key string) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	entry, exists := l.store.locks[key]
	if !exists || entry.holderID != l.holderID {
		return ErrLockNotHeld
	}

	delete(l.store.locks, key)
	return nil
}

// Extend extends the TTL of a held lock.
func (l *MemoryLock) Extend(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	entry, exists := l.store.locks[key]
	if !exists || entry.holderID != l.holderID {
		return ErrLockNotHeld
	}

	now := time.Now()
	if entry.expiresAt.Before(now) {
		return ErrLockExpired
	}

	entry.expiresAt = now.Add(ttl)
	return nil
}

// IsHeld checks if the lock is currently held by anyone.
func (l *MemoryLock) IsHeld(ctx context.Context, key string) (bool, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	entry, exists := l.store.locks[key]
	if !exists {
		return false, nil
	}

	return entry.expiresAt.After(time.Now()), nil
}

// WithLock executes a function while holding the lock.
func (l *MemoryLock) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	return withLock(ctx, l, l.options, key, ttl, fn)
}

var _ Locker = (*MemoryLock)(nil)
