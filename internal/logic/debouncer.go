package logic

import "time"

// DebounceState is a point-in-time view of the debouncer.
type DebounceState struct {
	// Gesture currently being held (latch policy), GestureNone if idle.
	Current Gesture
	// Last gesture that fired, GestureNone after Reset or Interrupt.
	LastFired Gesture
	// Time of the last sample accepted past the window (window policy).
	LastAccepted time.Time
}

// Debouncer turns per-sample gestures into de-duplicated fire decisions.
type Debouncer struct {
	policy Policy
	window time.Duration

	held      gestureSet
	current   Gesture
	lastFired Gesture
	lastAt    time.Time
}

// NewDebouncer creates a debouncer for the given policy.
// The window is only used by PolicyWindow; <= 0 selects DefaultWindow.
func NewDebouncer(policy Policy, window time.Duration) *Debouncer {
	if policy == "" {
		policy = PolicyLatch
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{policy: policy, window: window}
}

// Policy returns the configured suppression policy.
func (d *Debouncer) Policy() Policy {
	return d.policy
}

// Process takes the gestures of one sample and returns those that should fire,
// in input order. GestureNone entries are ignored.
func (d *Debouncer) Process(labels []Gesture, now time.Time) []Gesture {
	if d.policy == PolicyWindow {
		return d.processWindow(labels, now)
	}
	return d.processLatch(labels)
}

func (d *Debouncer) processLatch(labels []Gesture) []Gesture {
	var fired []Gesture
	var present gestureSet

	for _, g := range labels {
		if g == GestureNone {
			continue
		}
		present = present.with(g)
		if d.held.has(g) {
			continue
		}
		fired = append(fired, g)
		d.lastFired = g
		d.current = g
	}

	// Anything not present in this sample is no longer held.
	d.held = present
	if !d.held.has(d.current) {
		d.current = GestureNone
	}
	return fired
}

func (d *Debouncer) processWindow(labels []Gesture, now time.Time) []Gesture {
	if !d.lastAt.IsZero() && now.Sub(d.lastAt) < d.window {
		return nil
	}
	d.lastAt = now

	var fired []Gesture
	for _, g := range labels {
		if g == GestureNone || g == d.lastFired {
			continue
		}
		fired = append(fired, g)
		d.lastFired = g
		d.current = g
	}
	return fired
}

// Release clears the latch on g, typically when the effect fired for g has
// finished. A later sample of g fires again.
func (d *Debouncer) Release(g Gesture) {
	d.held = d.held.without(g)
	if d.current == g {
		d.current = GestureNone
	}
}

// Interrupt forgets the last fired gesture so the next gesture fires even if
// it repeats the previous one. Used when the alarm effect takes over.
func (d *Debouncer) Interrupt() {
	d.lastFired = GestureNone
	d.held = 0
	d.current = GestureNone
}

// Reset returns the debouncer to its initial state.
func (d *Debouncer) Reset() {
	d.held = 0
	d.current = GestureNone
	d.lastFired = GestureNone
	d.lastAt = time.Time{}
}

// State returns the current debounce state.
func (d *Debouncer) State() DebounceState {
	return DebounceState{
		Current:      d.current,
		LastFired:    d.lastFired,
		LastAccepted: d.lastAt,
	}
}

// gestureSet is a bitmask of gestures.
type gestureSet uint8

func (s gestureSet) has(g Gesture) bool {
	if g == GestureNone {
		return false
	}
	return s&(1<<g) != 0
}

func (s gestureSet) with(g Gesture) gestureSet {
	return s | 1<<g
}

func (s gestureSet) without(g Gesture) gestureSet {
	return s &^ (1 << g)
}
