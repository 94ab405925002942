package alarm

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned when work is posted to a stopped loop.
var ErrLoopStopped = errors.New("alarm: event loop stopped")

// Scheduler moves work onto the controller's goroutine.
type Scheduler interface {
	// Post queues fn, waiting for room. It returns false once the loop stopped.
	Post(fn func()) bool

	// TryPost queues fn only if there is room. Used for sensor samples, where
	// dropping one is better than stalling the sensor.
	TryPost(fn func()) bool

	// Go runs a blocking collaborator call off the loop.
	Go(fn func())
}

// Loop is a queue of functions drained by exactly one goroutine. The owner
// selects on Inbox alongside its ticker and signal channels.
type Loop struct {
	inbox chan func()

	once sync.Once
	done chan struct{}
}

// NewLoop creates a loop with room for size queued functions.
func NewLoop(size int) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{inbox: make(chan func(), size), done: make(chan struct{})}
}

// Inbox is read by the loop goroutine; each received function must be called.
func (l *Loop) Inbox() <-chan func() {
	return l.inbox
}

// Post implements Scheduler.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.done:
		return false
	}
}

// TryPost implements Scheduler.
func (l *Loop) TryPost(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	default:
		return false
	}
}

// Go implements Scheduler.
func (l *Loop) Go(fn func()) {
	go fn()
}

// Call runs fn on the loop and waits for its result.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	queued := func() { res <- fn() }

	select {
	case l.inbox <- queued:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-res:
		return err
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop makes further posts fail. Functions already queued are left for Drain.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Drain runs every queued function on the calling goroutine, including ones
// queued while draining, and returns how many ran.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case fn := <-l.inbox:
			fn()
			n++
		default:
			return n
		}
	}
}

// Inline runs everything immediately on the calling goroutine. Only useful
// when the caller is itself single-threaded, as in tests and one-shot tools.
type Inline struct{}

func (Inline) Post(fn func()) bool    { fn(); return true }
func (Inline) TryPost(fn func()) bool { fn(); return true }
func (Inline) Go(fn func())           { fn() }
