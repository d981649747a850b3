package queue

import (
	"context"
	"io"
	"sync"
	"time"
	"virtualmod/internal/core/ports"
)

var _ ports.ChangeQueue = (*MemoryQueue)(nil)

// MemoryQueue is a bounded channel of changed paths. A full queue drops the
// path and remembers that it did, so the consumer can fall back to a full run.
type MemoryQueue struct {
	ch       chan string
	mu       sync.RWMutex
	closed   bool
	overflow bool
	dropMu   sync.Mutex
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan string, capacity)}
}

func (q *MemoryQueue) Enqueue(path string) ports.EnqueueResult {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ports.EnqueueDropped
	}
	select {
	case q.ch <- path:
		return ports.EnqueueAccepted
	default:
		q.dropMu.Lock()
		q.overflow = true
		q.dropMu.Unlock()
		return ports.EnqueueDropped
	}
}

func (q *MemoryQueue) Overflowed() bool {
	q.dropMu.Lock()
	defer q.dropMu.Unlock()
	was := q.overflow
	q.overflow = false
	return was
}

// DequeueBatch waits up to wait for the first path, then drains whatever is
// already buffered up to maxItems. A closed, drained queue returns io.EOF.
func (q *MemoryQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]string, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	batch := make([]string, 0, maxItems)

	var timer <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timer = t.C
	}

	select {
	case path, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		batch = append(batch, path)
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		if wait <= 0 {
			return nil, nil
		}
		select {
		case path, ok := <-q.ch:
			if !ok {
				return nil, io.EOF
			}
			batch = append(batch, path)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer:
			return nil, nil
		}
	}

	for len(batch) < maxItems {
		select {
		case path, ok := <-q.ch:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, path)
		default:
			return batch, nil
		}
	}

	return batch, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}
