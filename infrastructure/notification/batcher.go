package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/legisflow/legisflow/domain/notification"
)

// ErrBatcherClosed is returned when adding to a closed batcher.
var ErrBatcherClosed = errors.New("batcher closed")

// DefaultBatchSize is the number of notifications posted per request.
const DefaultBatchSize = 50

// BatchFunc receives a full or final batch.
type BatchFunc func(ctx context.Context, batch []*notification.Notification) error

// Batcher accumulates notifications for one endpoint and hands them to
// OnBatch in groups of at most size.
type Batcher struct {
	size    int
	onBatch BatchFunc
	pending []*notification.Notification
	closed  bool
	mu      sync.Mutex
}

// NewBatcher creates a batcher. A non-positive size uses DefaultBatchSize.
func NewBatcher(size int, onBatch BatchFunc) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{
		size:    size,
		onBatch: onBatch,
		pending: make([]*notification.Notification, 0, size),
	}
}

// Add queues a notification, flushing when the batch is full.
func (b *Batcher) Add(ctx context.Context, n *notification.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBatcherClosed
	}
	b.pending = append(b.pending, n)
	if len(b.pending) >= b.size {
		return b.flushLocked(ctx)
	}
	return nil
}

// Flush hands any queued notifications to OnBatch.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

func (b *Batcher) flushLocked(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	batch := make([]*notification.Notification, len(b.pending))
	copy(batch, b.pending)
	b.pending = b.pending[:0]

	if b.onBatch == nil {
		return nil
	}
	return b.onBatch(ctx, batch)
}

// Close flushes the remainder and rejects further adds.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return b.flushLocked(ctx)
}

// Pending returns the number of queued notifications.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
