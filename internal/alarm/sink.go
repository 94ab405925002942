package alarm

import (
	"errors"
	"sync"

	"github.com/sweeney/panic-alarm/internal/logic"
)

// EventSink receives controller events. Implementations must not block the
// loop for long.
type EventSink interface {
	Publish(event logic.Event) error
}

// FanOut delivers each event to every sink, even when one fails.
type FanOut []EventSink

// Publish implements EventSink.
func (f FanOut) Publish(event logic.Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FakeSink records published events.
type FakeSink struct {
	mu     sync.Mutex
	Events []logic.Event
	Err    error
}

// NewFakeSink creates a FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Publish records event and returns Err.
func (f *FakeSink) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, event)
	return f.Err
}

// Types returns the recorded event types in order.
func (f *FakeSink) Types() []logic.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]logic.EventType, len(f.Events))
	for i, e := range f.Events {
		out[i] = e.Type
	}
	return out
}

// Count returns the number of recorded events of type t.
func (f *FakeSink) Count(t logic.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.Events {
		if e.Type == t {
			n++
		}
	}
	return n
}
