// Package logic contains the pure rules of the panic alarm: gesture
// classification, trigger debouncing and the gesture-to-effect table.
// This package has NO external dependencies (no sensors, audio, timers or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Threshold is the acceleration magnitude a single axis must exceed
// (strictly) to count as a deliberate gesture. Same unit as the samples.
const Threshold = 5.0

// DefaultWindow is the suppression window of the time-window policy.
const DefaultWindow = 2000 * time.Millisecond

// EffectDuration is how long vibration and flashlight effects last before
// their cleanup runs.
const EffectDuration = 5000 * time.Millisecond

// Sample is one acceleration-including-gravity reading.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Gesture is the discrete label derived from a sample.
type Gesture uint8

const (
	GestureNone Gesture = iota
	GestureLeft
	GestureRight
	GestureVertical
	GestureHorizontal
)

// Gestures lists every firing gesture in a stable order.
var Gestures = []Gesture{GestureLeft, GestureRight, GestureVertical, GestureHorizontal}

func (g Gesture) String() string {
	switch g {
	case GestureNone:
		return "none"
	case GestureLeft:
		return "left"
	case GestureRight:
		return "right"
	case GestureVertical:
		return "vertical"
	case GestureHorizontal:
		return "horizontal"
	}
	return fmt.Sprintf("gesture(%d)", uint8(g))
}

// Variant selects the classification rules.
type Variant string

const (
	// VariantExclusive evaluates the axes as one if/else-if chain:
	// at most one gesture per sample.
	VariantExclusive Variant = "exclusive"
	// VariantIndependent checks Horizontal independently of the x/y chain,
	// so one sample may yield two gestures.
	VariantIndependent Variant = "independent"
)

// Policy selects the trigger suppression rules.
type Policy string

const (
	// PolicyLatch fires once per continuous hold of a gesture.
	PolicyLatch Policy = "latch"
	// PolicyWindow ignores samples inside a fixed window after the last
	// accepted sample and never repeats the last fired gesture.
	PolicyWindow Policy = "window"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantExclusive, VariantIndependent:
		return v, nil
	}
	return "", fmt.Errorf("unknown classifier variant %q", s)
}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyLatch, PolicyWindow:
		return p, nil
	}
	return "", fmt.Errorf("unknown debounce policy %q", s)
}

// EventType represents an alarm lifecycle or trigger event.
type EventType string

const (
	EventArmed            EventType = "ARMED"
	EventDisarmed         EventType = "DISARMED"
	EventGesture          EventType = "GESTURE"
	EventAlarm            EventType = "ALARM"
	EventLogout           EventType = "LOGOUT"
	EventPermissionDenied EventType = "PERMISSION_DENIED"
	EventPrompt           EventType = "PROMPT"
)

// Event represents something the controller did that observers care about.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Gesture   Gesture // set for EventGesture only
	Armed     bool    // armed flag after the event
	Reason    string  // e.g. "credential_mismatch", "auth_failure"
}

// FireCounts tracks the number of fired effects since startup.
type FireCounts struct {
	Left       int
	Right      int
	Vertical   int
	Horizontal int
	Alarm      int
}

// Add increments the counter for g. GestureNone is ignored.
func (c *FireCounts) Add(g Gesture) {
	switch g {
	case GestureLeft:
		c.Left++
	case GestureRight:
		c.Right++
	case GestureVertical:
		c.Vertical++
	case GestureHorizontal:
		c.Horizontal++
	}
}

// Total returns the sum of all counters.
func (c FireCounts) Total() int {
	return c.Left + c.Right + c.Vertical + c.Horizontal + c.Alarm
}
