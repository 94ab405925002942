// Package motion provides acceleration sample sources.
// Sources deliver samples asynchronously to subscribed callbacks; callbacks
// run on the source's goroutine and must hand the sample off quickly.
package motion

import (
	"context"
	"errors"
	"sync"

	"github.com/sweeney/panic-alarm/internal/logic"
)

// Handle identifies one subscription.
type Handle uint64

// ErrUnknownHandle is returned by Unsubscribe for handles that are not active.
var ErrUnknownHandle = errors.New("motion: unknown subscription handle")

// Source emits acceleration-including-gravity samples.
type Source interface {
	// RequestPermission asks for access to the sensor. A false result with a
	// nil error means the user or platform refused.
	RequestPermission(ctx context.Context) (bool, error)

	// Subscribe registers fn for every subsequent sample.
	Subscribe(ctx context.Context, fn func(logic.Sample)) (Handle, error)

	// Unsubscribe removes one subscription.
	Unsubscribe(h Handle) error

	// UnsubscribeAll removes every subscription. Safe to call repeatedly.
	UnsubscribeAll() error
}

// hub tracks listeners for sources that produce samples from one goroutine.
type hub struct {
	mu        sync.RWMutex
	next      Handle
	listeners map[Handle]func(logic.Sample)
}

func newHub() *hub {
	return &hub{listeners: make(map[Handle]func(logic.Sample))}
}

// add registers fn and reports whether it is the first listener.
func (h *hub) add(fn func(logic.Sample)) (Handle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.listeners[h.next] = fn
	return h.next, len(h.listeners) == 1
}

// remove deletes h and reports whether no listeners remain.
func (h *hub) remove(id Handle) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[id]; !ok {
		return len(h.listeners) == 0, ErrUnknownHandle
	}
	delete(h.listeners, id)
	return len(h.listeners) == 0, nil
}

func (h *hub) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = make(map[Handle]func(logic.Sample))
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

func (h *hub) broadcast(s logic.Sample) {
	h.mu.RLock()
	fns := make([]func(logic.Sample), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}
