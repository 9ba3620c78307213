package queue

import (
	"context"
	"sync"
)

// MemoryQueue is an in-process queue drained by conversion workers.
type MemoryQueue struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
}

// NewMemoryQueue creates a queue holding up to size pending messages.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan Message, size)}
}

// Send enqueues msg, blocking while the buffer is full.
func (q *MemoryQueue) Send(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages is the receive side. It is closed by Close.
func (q *MemoryQueue) Messages() <-chan Message {
	return q.ch
}

// Close stops accepting messages. Buffered messages remain readable.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

var _ Client = (*MemoryQueue)(nil)
