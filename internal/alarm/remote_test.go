package alarm

import (
	"context"
	"errors"
	"testing"
)

// serve drains l on its own goroutine until the test ends.
func serve(t *testing.T, l *Loop) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		for {
			select {
			case fn := <-l.Inbox():
				fn()
			case <-done:
				return
			}
		}
	}()
}

func TestRemote_RunsOnLoop(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	l := NewLoop(4)
	serve(t, l)
	r := NewRemote(l, h.ctrl)
	ctx := context.Background()

	if err := r.Toggle(ctx); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	s, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.State != StateArmed {
		t.Errorf("state = %s, want ARMED", s.State)
	}

	if err := r.DismissPrompt(ctx); !errors.Is(err, ErrNotArmed) {
		t.Errorf("DismissPrompt without prompt = %v, want ErrNotArmed", err)
	}

	if err := r.Toggle(ctx); err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	if err := r.Toggle(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("Toggle while prompting = %v, want ErrBusy", err)
	}
	if err := r.DismissPrompt(ctx); err != nil {
		t.Errorf("DismissPrompt: %v", err)
	}

	if err := r.LogOut(ctx); err != nil {
		t.Fatalf("LogOut: %v", err)
	}
	if s, _ := r.Snapshot(ctx); !s.LogoutPending {
		t.Error("logout should be pending")
	}
}

func TestRemote_StoppedLoop(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	l := NewLoop(1)
	l.Stop()
	r := NewRemote(l, h.ctrl)

	if err := r.Toggle(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Toggle = %v, want ErrLoopStopped", err)
	}
	if _, err := r.Snapshot(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Snapshot = %v, want ErrLoopStopped", err)
	}
}
