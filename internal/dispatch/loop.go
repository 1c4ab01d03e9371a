// Package dispatch runs UI updates on one goroutine.
package dispatch

import (
	"context"
	"sync"
)

// Loop is a single-threaded update context. Background callbacks (realtime events,
// network completions) Post closures here instead of touching screen state directly.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop with the given queue capacity
func NewLoop(capacity int) *Loop {
	if capacity < 1 {
		capacity = 1
	}
	return &Loop{
		queue: make(chan func(), capacity),
		done:  make(chan struct{}),
	}
}

// Run executes posted closures in order until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post queues fn. It blocks while the queue is full and returns false once the loop stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Stop ends Run; closures still queued are dropped
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}
