package web

import (
	"context"
	"sync"
)

// Prompt is a credential prompt answered from the browser. At most one prompt
// is open; a new one replaces it.
type Prompt struct {
	mu     sync.Mutex
	header string
	submit func(string)
}

// NewPrompt creates a Prompt.
func NewPrompt() *Prompt {
	return &Prompt{}
}

// PromptCredential opens the prompt. It does not wait for an answer.
func (p *Prompt) PromptCredential(ctx context.Context, header string, submit func(string)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.header = header
	p.submit = submit
	return nil
}

// Pending returns the header of the open prompt.
func (p *Prompt) Pending() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.header, p.submit != nil
}

// Submit answers and closes the open prompt. It reports false if none was open.
func (p *Prompt) Submit(password string) bool {
	p.mu.Lock()
	submit := p.submit
	p.submit = nil
	p.header = ""
	p.mu.Unlock()

	if submit == nil {
		return false
	}
	submit(password)
	return true
}

// Dismiss closes the open prompt without answering.
func (p *Prompt) Dismiss() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	open := p.submit != nil
	p.submit = nil
	p.header = ""
	return open
}
