package alarm

import (
	"context"
	"sync"
)

// Prompter shows a modal credential dialog. submit is called at most once
// with the entered value; it may be called from any goroutine.
type Prompter interface {
	PromptCredential(ctx context.Context, header string, submit func(password string)) error

	// Dismiss closes the open prompt without answering. It reports false if
	// none was open.
	Dismiss() bool
}

// FakePrompter captures the pending prompt so tests can answer it.
type FakePrompter struct {
	mu      sync.Mutex
	submit     func(string)
	Headers    []string
	Dismissals int
	Err        error
}

// NewFakePrompter creates a FakePrompter.
func NewFakePrompter() *FakePrompter {
	return &FakePrompter{}
}

// PromptCredential records the prompt.
func (f *FakePrompter) PromptCredential(ctx context.Context, header string, submit func(string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Headers = append(f.Headers, header)
	f.submit = submit
	return nil
}

// Pending reports whether a prompt is waiting for an answer.
func (f *FakePrompter) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submit != nil
}

// Submit answers the pending prompt. It reports false if none was pending.
func (f *FakePrompter) Submit(password string) bool {
	f.mu.Lock()
	submit := f.submit
	f.submit = nil
	f.mu.Unlock()
	if submit == nil {
		return false
	}
	submit(password)
	return true
}

// Dismiss drops the pending prompt.
func (f *FakePrompter) Dismiss() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	open := f.submit != nil
	f.submit = nil
	if open {
		f.Dismissals++
	}
	return open
}
