package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryLock_AcquireRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLock()

	acquired, err := l.Acquire(ctx, "k", 10*time.Second)
	if err != nil || !acquired {
		t.Fatalf("Acquire() = %v, %v", acquired, err)
	}
	if held, _ := l.IsHeld(ctx, "k"); !held {
		t.Error("expected lock to be held")
	}
	if err := l.Release(ctx, "k"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := l.Release(ctx, "k"); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("second Release() error = %v, want ErrLockNotHeld", err)
	}
}

func TestMemoryLock_Contention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryLockStore()
	a := NewMemoryLock(WithStore(store), WithHolderID("a"))
	b := NewMemoryLock(WithStore(store), WithHolderID("b"))

	if ok, _ := a.Acquire(ctx, "k", 10*time.Second); !ok {
		t.Fatal("a should acquire")
	}
	if ok, _ := a.Acquire(ctx, "k", 10*time.Second); !ok {
		t.Error("same holder should reacquire")
	}
	if ok, _ := b.Acquire(ctx, "k", 10*time.Second); ok {
		t.Error("b must not acquire a held lock")
	}
	if err := b.Release(ctx, "k"); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("b.Release() error = %v", err)
	}
	if err := b.Extend(ctx, "k", time.Second); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("b.Extend() error = %v", err)
	}
}

func TestMemoryLock_Expiration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryLockStore()
	a := NewMemoryLock(WithStore(store))
	b := NewMemoryLock(WithStore(store))

	_, _ = a.Acquire(ctx, "k", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	if held, _ := a.IsHeld(ctx, "k"); held {
		t.Error("expired lock reported as held")
	}
	if err := a.Extend(ctx, "k", time.Second); !errors.Is(err, ErrLockExpired) {
		t.Errorf("Extend() error = %v, want ErrLockExpired", err)
	}
	if ok, _ := b.Acquire(ctx, "k", time.Second); !ok {
		t.Error("b should acquire an expired lock")
	}
}

func TestMemoryLock_InvalidTTL(t *testing.T) {
	t.Parallel()

	l := NewMemoryLock()
	if _, err := l.Acquire(context.Background(), "k", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("Acquire() error = %v, want ErrInvalidTTL", err)
	}
	if err := l.Extend(context.Background(), "k", -time.Second); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("Extend() error = %v, want ErrInvalidTTL", err)
	}
}

func TestMemoryLock_WithLockSerializes(t *testing.T) {
	t.Parallel()

	store := NewMemoryLockStore()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := NewMemoryLock(WithStore(store), WithMemoryLockOptions(WithRetryInterval(time.Millisecond), WithMaxRetries(1000)))
			err := l.WithLock(context.Background(), ProposalKey("p1"), time.Second, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside)
	}
}

func TestMemoryLock_WithLockGivesUp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryLockStore()
	holder := NewMemoryLock(WithStore(store))
	_, _ = holder.Acquire(ctx, "k", 10*time.Second)

	waiter := NewMemoryLock(WithStore(store), WithMemoryLockOptions(WithMaxRetries(2), WithRetryInterval(time.Millisecond)))
	called := false
	err := waiter.WithLock(ctx, "k", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrLockHeld) {
		t.Errorf("WithLock() error = %v, want ErrLockHeld", err)
	}
	if called {
		t.Error("fn ran without the lock")
	}
}

func TestMemoryLock_WithLockReleasesOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var released string
	l := NewMemoryLock(WithMemoryLockOptions(WithOnRelease(func(key string) { released = key })))

	boom := errors.New("boom")
	if err := l.WithLock(ctx, "k", time.Second, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("WithLock() error = %v", err)
	}
	if held, _ := l.IsHeld(ctx, "k"); held {
		t.Error("lock still held after fn returned")
	}
	if released != "k" {
		t.Errorf("onRelease key = %q", released)
	}
}

func TestAcquireWithRetry_ContextCancel(t *testing.T) {
	t.Parallel()

	store := NewMemoryLockStore()
	holder := NewMemoryLock(WithStore(store))
	_, _ = holder.Acquire(context.Background(), "k", 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	waiter := NewMemoryLock(WithStore(store))
	_, err := AcquireWithRetry(ctx, waiter, "k", time.Second, WithRetryInterval(5*time.Millisecond), WithMaxRetries(100))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AcquireWithRetry() error = %v, want DeadlineExceeded", err)
	}
}

func TestRedisLock_Config(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	l := NewRedisLockFromClient(client, RedisConfig{HolderID: "engine-1"})
	if l.ID() != "engine-1" {
		t.Errorf("ID() = %q", l.ID())
	}
	if got := l.key(ProposalKey("p1")); got != "legisflow:lock:proposal:p1" {
		t.Errorf("key() = %q", got)
	}
	if _, err := l.Acquire(context.Background(), "k", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("Acquire() error = %v, want ErrInvalidTTL", err)
	}
}

func TestRedisLock_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	cfg := DefaultRedisConfig()
	cfg.Address = "127.0.0.1:1"
	if _, err := NewRedisLock(ctx, cfg); err == nil {
		t.Error("NewRedisLock() expected connection error")
	}
}
