package motion

import (
	"context"
	"sync"

	"github.com/sweeney/panic-alarm/internal/logic"
)

// FakeSource is a test double that delivers samples synchronously on Emit.
type FakeSource struct {
	hub *hub

	mu sync.Mutex

	// Granted is the RequestPermission result.
	Granted bool

	// PermissionError, if set, is returned by RequestPermission.
	PermissionError error

	// SubscribeError, if set, is returned by Subscribe.
	SubscribeError error

	// PermissionRequests counts RequestPermission calls.
	PermissionRequests int

	// Unsubscribes counts Unsubscribe calls, including unknown handles.
	Unsubscribes int

	// UnsubscribeAlls counts UnsubscribeAll calls.
	UnsubscribeAlls int
}

// NewFakeSource creates a FakeSource that grants permission.
func NewFakeSource() *FakeSource {
	return &FakeSource{hub: newHub(), Granted: true}
}

// RequestPermission returns the scripted result.
func (f *FakeSource) RequestPermission(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PermissionRequests++
	if f.PermissionError != nil {
		return false, f.PermissionError
	}
	return f.Granted, nil
}

// Subscribe registers fn.
func (f *FakeSource) Subscribe(ctx context.Context, fn func(logic.Sample)) (Handle, error) {
	f.mu.Lock()
	err := f.SubscribeError
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	h, _ := f.hub.add(fn)
	return h, nil
}

// Unsubscribe removes one subscription.
func (f *FakeSource) Unsubscribe(h Handle) error {
	f.mu.Lock()
	f.Unsubscribes++
	f.mu.Unlock()
	_, err := f.hub.remove(h)
	return err
}

// UnsubscribeAll removes every subscription.
func (f *FakeSource) UnsubscribeAll() error {
	f.mu.Lock()
	f.UnsubscribeAlls++
	f.mu.Unlock()
	f.hub.clear()
	return nil
}

// Emit delivers s to every subscriber on the calling goroutine.
func (f *FakeSource) Emit(s logic.Sample) {
	f.hub.broadcast(s)
}

// Subscribers returns the number of active subscriptions.
func (f *FakeSource) Subscribers() int {
	return f.hub.len()
}
