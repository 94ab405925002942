package alarm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/panic-alarm/internal/audio"
	"github.com/sweeney/panic-alarm/internal/auth"
	"github.com/sweeney/panic-alarm/internal/device"
	"github.com/sweeney/panic-alarm/internal/logic"
	"github.com/sweeney/panic-alarm/internal/motion"
)

// DefaultLogoutDelay is the delay between LogOut and the actual logout.
const DefaultLogoutDelay = 3000 * time.Millisecond

// DefaultPromptHeader is shown in the disarm dialog.
const DefaultPromptHeader = "Enter your password to turn off the alarm"

// Alarm reasons carried in ALARM and PERMISSION_DENIED events.
const (
	ReasonMismatch      = "credential_mismatch"
	ReasonAuthFailure   = "auth_failure"
	ReasonDenied        = "permission_denied"
	ReasonSourceFailure = "source_failure"
)

// Config holds controller tunables. Zero values select the defaults.
type Config struct {
	Variant      logic.Variant
	Policy       logic.Policy
	Window       time.Duration
	Threshold    float64
	LogoutDelay  time.Duration
	PromptHeader string
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Source    motion.Source
	Player    audio.Player
	Flash     device.Flashlight
	Haptics   device.Haptics
	Auth      auth.Authenticator
	Prompter  Prompter
	Sink      EventSink
	Scheduler Scheduler
	Now       func() time.Time
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State          State
	Armed          bool
	Variant        logic.Variant
	Policy         logic.Policy
	Debounce       logic.DebounceState
	LastGesture    logic.Gesture
	LastGestureAt  time.Time
	Counts         logic.FireCounts
	CleanupPending bool
	CleanupDue     time.Time
	LogoutPending  bool
	LogoutAt       time.Time
	LastError      string
}

// Controller is the arm/disarm state machine and the sample pipeline.
// All methods must be called from the loop goroutine.
type Controller struct {
	ctx   context.Context
	cfg   Config
	deps  Deps
	now   func() time.Time
	sched Scheduler

	classifier logic.Classifier
	debouncer  *logic.Debouncer
	dispatcher *Dispatcher

	state State

	// attempt invalidates async completions (permission, verify) that
	// arrive after the controller moved on.
	attempt uint64

	// gen invalidates samples from a subscription that has ended.
	gen       uint64
	handle    motion.Handle
	listening bool

	// effect is the cleanup token of the effect in flight, zero if none.
	effect Token

	logoutAt time.Time

	counts        logic.FireCounts
	lastGesture   logic.Gesture
	lastGestureAt time.Time
	lastErr       error
}

// NewController creates a disarmed controller. ctx bounds every
// collaborator call.
func NewController(ctx context.Context, cfg Config, deps Deps) *Controller {
	if cfg.Variant == "" {
		cfg.Variant = logic.VariantExclusive
	}
	if cfg.Policy == "" {
		cfg.Policy = logic.PolicyLatch
	}
	if cfg.Window <= 0 {
		cfg.Window = logic.DefaultWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = logic.Threshold
	}
	if cfg.LogoutDelay <= 0 {
		cfg.LogoutDelay = DefaultLogoutDelay
	}
	if cfg.PromptHeader == "" {
		cfg.PromptHeader = DefaultPromptHeader
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Scheduler == nil {
		deps.Scheduler = Inline{}
	}
	if deps.Sink == nil {
		deps.Sink = FanOut(nil)
	}

	return &Controller{
		ctx:        ctx,
		cfg:        cfg,
		deps:       deps,
		now:        deps.Now,
		sched:      deps.Scheduler,
		classifier: logic.NewClassifier(cfg.Variant, cfg.Threshold),
		debouncer:  logic.NewDebouncer(cfg.Policy, cfg.Window),
		dispatcher: NewDispatcher(deps.Player, deps.Flash, deps.Haptics),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Armed reports whether the detector is logically armed.
func (c *Controller) Armed() bool {
	return c.state.Armed()
}

// Toggle arms a disarmed controller or asks for the credential to disarm an
// armed one. Both complete asynchronously; the outcome is reported as an event.
func (c *Controller) Toggle() error {
	switch c.state {
	case StateDisarmed:
		c.arm()
		return nil
	case StateArmed:
		return c.promptDisarm()
	}
	return fmt.Errorf("%w: %s", ErrBusy, c.state)
}

func (c *Controller) arm() {
	c.state = StateArming
	c.attempt++
	attempt := c.attempt
	log.Printf("alarm: arming, requesting motion permission")

	c.sched.Go(func() {
		granted, err := c.deps.Source.RequestPermission(c.ctx)
		c.sched.Post(func() { c.completeArming(attempt, granted, err) })
	})
}

func (c *Controller) completeArming(attempt uint64, granted bool, err error) {
	if attempt != c.attempt || c.state != StateArming {
		return
	}

	if err == nil && !granted {
		err = ErrPermissionDenied
	}
	if err != nil {
		c.failArming(ReasonDenied, err)
		return
	}

	c.gen++
	gen := c.gen
	h, err := c.deps.Source.Subscribe(c.ctx, func(s logic.Sample) {
		c.sched.TryPost(func() { c.handleSample(gen, s) })
	})
	if err != nil {
		c.failArming(ReasonSourceFailure, fmt.Errorf("subscribe: %w", err))
		return
	}

	c.handle = h
	c.listening = true
	c.lastErr = nil
	c.state = StateArmed
	log.Printf("alarm: armed (variant=%s policy=%s)", c.cfg.Variant, c.cfg.Policy)
	c.emit(logic.EventArmed, logic.GestureNone, "")
}

func (c *Controller) failArming(reason string, err error) {
	if !errors.Is(err, ErrPermissionDenied) {
		err = fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	c.lastErr = err
	c.state = StateDisarmed
	log.Printf("alarm: arming failed: %v", err)
	c.emit(logic.EventPermissionDenied, logic.GestureNone, reason)
}

func (c *Controller) promptDisarm() error {
	c.state = StateAwaitingCredential
	c.attempt++
	attempt := c.attempt

	err := c.deps.Prompter.PromptCredential(c.ctx, c.cfg.PromptHeader, func(password string) {
		c.sched.Post(func() { c.checkCredential(attempt, password) })
	})
	if err != nil {
		if c.state == StateAwaitingCredential && attempt == c.attempt {
			c.state = StateArmed
		}
		return fmt.Errorf("show credential prompt: %w", err)
	}
	c.emit(logic.EventPrompt, logic.GestureNone, "")
	return nil
}

// DismissPrompt closes a pending credential prompt without an answer. The
// detector stays armed and no alarm fires.
func (c *Controller) DismissPrompt() error {
	if c.state != StateAwaitingCredential {
		return ErrNotArmed
	}
	c.closePrompt()
	c.attempt++
	c.state = StateArmed
	log.Printf("alarm: credential prompt dismissed")
	return nil
}

// closePrompt takes down a prompt that is still open when the controller
// leaves AwaitingCredential without an answer.
func (c *Controller) closePrompt() {
	if c.state == StateAwaitingCredential {
		c.deps.Prompter.Dismiss()
	}
}

func (c *Controller) checkCredential(attempt uint64, password string) {
	if attempt != c.attempt || c.state != StateAwaitingCredential {
		return
	}
	// Further answers to the same prompt are ignored.
	c.attempt++
	attempt = c.attempt

	c.sched.Go(func() {
		ok, err := c.verify(password)
		c.sched.Post(func() { c.completeDisarm(attempt, ok, err) })
	})
}

func (c *Controller) verify(password string) (bool, error) {
	email, err := c.deps.Auth.CurrentEmail(c.ctx)
	if err != nil {
		return false, fmt.Errorf("%w: current user: %w", ErrAuthFailure, err)
	}
	if email == "" {
		return false, fmt.Errorf("%w: no current user", ErrAuthFailure)
	}
	ok, err := c.deps.Auth.Verify(c.ctx, email, password)
	if err != nil {
		return false, fmt.Errorf("%w: verify: %w", ErrAuthFailure, err)
	}
	if !ok {
		return false, ErrCredentialMismatch
	}
	return true, nil
}

func (c *Controller) completeDisarm(attempt uint64, ok bool, err error) {
	if attempt != c.attempt || c.state != StateAwaitingCredential {
		return
	}

	if ok && err == nil {
		c.stopListening()
		c.state = StateDisarmed
		c.lastErr = nil
		log.Printf("alarm: disarmed")
		c.emit(logic.EventDisarmed, logic.GestureNone, "")
		return
	}

	reason := ReasonMismatch
	if !errors.Is(err, ErrCredentialMismatch) {
		reason = ReasonAuthFailure
	}
	c.lastErr = err
	c.state = StateArmed
	log.Printf("alarm: disarm refused: %v", err)
	c.fireAlarm(reason)
}

func (c *Controller) fireAlarm(reason string) {
	now := c.now()
	c.debouncer.Interrupt()
	tok, err := c.dispatcher.Alarm(now)
	if err != nil {
		log.Printf("alarm: alarm effect: %v", err)
	}
	c.effect = tok
	c.counts.Alarm++
	c.emit(logic.EventAlarm, logic.GestureNone, reason)
}

func (c *Controller) handleSample(gen uint64, s logic.Sample) {
	if gen != c.gen || !c.listening {
		return
	}
	c.ProcessSample(s, c.now())
}

// ProcessSample runs one sample through the classifier, the debouncer and
// the dispatcher. Samples are ignored unless armed.
func (c *Controller) ProcessSample(s logic.Sample, now time.Time) []logic.Gesture {
	if !c.listening {
		return nil
	}

	fired := c.debouncer.Process(c.classifier.Classify(s), now)
	for _, g := range fired {
		tok, err := c.dispatcher.Fire(g, now)
		if err != nil {
			log.Printf("alarm: effect for %s: %v", g, err)
		}
		c.effect = tok
		c.counts.Add(g)
		c.lastGesture = g
		c.lastGestureAt = now
		log.Printf("alarm: gesture %s (x=%.2f y=%.2f z=%.2f)", g, s.X, s.Y, s.Z)
		c.emit(logic.EventGesture, g, "")
	}
	return fired
}

// LogOut schedules the logout. It is scheduled at most once at a time.
func (c *Controller) LogOut() {
	if !c.logoutAt.IsZero() {
		return
	}
	c.logoutAt = c.now().Add(c.cfg.LogoutDelay)
	log.Printf("alarm: logout in %v", c.cfg.LogoutDelay)
}

// Tick runs every deadline that has passed: effect cleanup and the
// scheduled logout.
func (c *Controller) Tick(now time.Time) {
	g, ran, err := c.dispatcher.Tick(now)
	if err != nil {
		log.Printf("alarm: effect cleanup: %v", err)
	}
	if ran {
		c.effect = 0
		if g != logic.GestureNone {
			c.debouncer.Release(g)
		}
	}

	if !c.logoutAt.IsZero() && !now.Before(c.logoutAt) {
		c.logoutAt = time.Time{}
		c.logout()
	}
}

func (c *Controller) logout() {
	c.closePrompt()
	c.attempt++
	c.stopListening()
	c.state = StateDisarmed
	if err := c.deps.Auth.Logout(c.ctx); err != nil {
		c.lastErr = err
		log.Printf("alarm: logout: %v", err)
	}
	log.Printf("alarm: logged out")
	c.emit(logic.EventLogout, logic.GestureNone, "")
}

// Teardown unsubscribes, drops every pending deadline and resets the
// detector. Safe to call in any state, any number of times.
func (c *Controller) Teardown() {
	c.closePrompt()
	c.attempt++
	c.stopListening()
	if err := c.deps.Source.UnsubscribeAll(); err != nil {
		log.Printf("alarm: unsubscribe all: %v", err)
	}
	c.logoutAt = time.Time{}
	c.state = StateDisarmed
}

// stopListening ends the subscription and releases the pending effect.
// Idempotent.
func (c *Controller) stopListening() {
	c.gen++
	if c.listening {
		if err := c.deps.Source.Unsubscribe(c.handle); err != nil && !errors.Is(err, motion.ErrUnknownHandle) {
			log.Printf("alarm: unsubscribe: %v", err)
		}
		c.listening = false
		c.handle = 0
	}
	if _, err := c.dispatcher.CancelToken(c.effect); err != nil {
		log.Printf("alarm: cancel effect: %v", err)
	}
	c.effect = 0
	c.debouncer.Reset()
}

func (c *Controller) emit(t logic.EventType, g logic.Gesture, reason string) {
	ev := logic.Event{
		Timestamp: c.now(),
		Type:      t,
		Gesture:   g,
		Armed:     c.Armed(),
		Reason:    reason,
	}
	if err := c.deps.Sink.Publish(ev); err != nil {
		log.Printf("alarm: publish %s: %v", t, err)
	}
}

// Snapshot returns the controller's current view.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:         c.state,
		Armed:         c.Armed(),
		Variant:       c.cfg.Variant,
		Policy:        c.cfg.Policy,
		Debounce:      c.debouncer.State(),
		LastGesture:   c.lastGesture,
		LastGestureAt: c.lastGestureAt,
		Counts:        c.counts,
		LogoutPending: !c.logoutAt.IsZero(),
		LogoutAt:      c.logoutAt,
	}
	if _, due, ok := c.dispatcher.Pending(); ok {
		s.CleanupPending = true
		s.CleanupDue = due
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
