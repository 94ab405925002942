package device

import (
	"sync"
	"time"
)

// FakeFlashlight records switch calls for test assertions.
type FakeFlashlight struct {
	mu sync.Mutex

	// On is the current light state.
	On bool

	// OnCalls records the intensity of every successful SwitchOn.
	OnCalls []float64

	// OffCalls counts SwitchOff calls.
	OffCalls int

	// SwitchOnError, if set, is returned by SwitchOn and the light stays off.
	SwitchOnError error

	// SwitchOffError, if set, is returned by SwitchOff.
	SwitchOffError error
}

// NewFakeFlashlight creates a FakeFlashlight that starts off.
func NewFakeFlashlight() *FakeFlashlight {
	return &FakeFlashlight{}
}

// SwitchOn records the call and turns the fake light on.
func (f *FakeFlashlight) SwitchOn(intensity float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SwitchOnError != nil {
		return f.SwitchOnError
	}
	f.On = true
	f.OnCalls = append(f.OnCalls, intensity)
	return nil
}

// SwitchOff records the call and turns the fake light off.
func (f *FakeFlashlight) SwitchOff() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OffCalls++
	if f.SwitchOffError != nil {
		return f.SwitchOffError
	}
	f.On = false
	return nil
}

// IsOn reports the current light state.
func (f *FakeFlashlight) IsOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.On
}

// Reset clears recorded calls and errors.
func (f *FakeFlashlight) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.On = false
	f.OnCalls = nil
	f.OffCalls = 0
	f.SwitchOnError = nil
	f.SwitchOffError = nil
}

// FakeHaptics records vibration requests for test assertions.
type FakeHaptics struct {
	mu sync.Mutex

	// Calls records every successful Vibrate duration > 0.
	Calls []time.Duration

	// Stops counts successful Vibrate calls with d <= 0.
	Stops int

	// Running reports whether the last successful call started the motor.
	Running bool

	// VibrateError, if set, is returned by Vibrate.
	VibrateError error
}

// NewFakeHaptics creates a FakeHaptics.
func NewFakeHaptics() *FakeHaptics {
	return &FakeHaptics{}
}

// Vibrate records the requested duration. A duration <= 0 is recorded as a
// stop, not a call.
func (f *FakeHaptics) Vibrate(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.VibrateError != nil {
		return f.VibrateError
	}
	if d <= 0 {
		f.Stops++
		f.Running = false
		return nil
	}
	f.Calls = append(f.Calls, d)
	f.Running = true
	return nil
}

// StopCount returns the number of successful stop requests.
func (f *FakeHaptics) StopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stops
}

// IsRunning reports whether the fake motor was last started, not stopped.
func (f *FakeHaptics) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Running
}

// Count returns the number of successful Vibrate calls.
func (f *FakeHaptics) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
