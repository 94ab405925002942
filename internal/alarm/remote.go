package alarm

import "context"

// Remote runs controller operations on the loop for callers on other
// goroutines, such as HTTP handlers.
type Remote struct {
	loop *Loop
	ctrl *Controller
}

// NewRemote creates a Remote.
func NewRemote(loop *Loop, ctrl *Controller) *Remote {
	return &Remote{loop: loop, ctrl: ctrl}
}

// Toggle calls Controller.Toggle on the loop.
func (r *Remote) Toggle(ctx context.Context) error {
	return r.loop.Call(ctx, r.ctrl.Toggle)
}

// DismissPrompt calls Controller.DismissPrompt on the loop.
func (r *Remote) DismissPrompt(ctx context.Context) error {
	return r.loop.Call(ctx, r.ctrl.DismissPrompt)
}

// LogOut calls Controller.LogOut on the loop.
func (r *Remote) LogOut(ctx context.Context) error {
	return r.loop.Call(ctx, func() error {
		r.ctrl.LogOut()
		return nil
	})
}

// Snapshot reads the controller state on the loop.
func (r *Remote) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := r.loop.Call(ctx, func() error {
		s = r.ctrl.Snapshot()
		return nil
	})
	return s, err
}
