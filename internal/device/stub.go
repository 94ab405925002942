//go:build !linux

package device

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("device: not supported on this platform (requires Linux)")

// GPIOFlashlight is not available on non-Linux platforms.
type GPIOFlashlight struct{}

// NewGPIOFlashlight returns an error on non-Linux platforms.
func NewGPIOFlashlight(chip string, pin int) (*GPIOFlashlight, error) {
	return nil, errUnsupported
}

// SwitchOn is not implemented on non-Linux platforms.
func (f *GPIOFlashlight) SwitchOn(intensity float64) error { return errUnsupported }

// SwitchOff is not implemented on non-Linux platforms.
func (f *GPIOFlashlight) SwitchOff() error { return errUnsupported }

// Close is a no-op on non-Linux platforms.
func (f *GPIOFlashlight) Close() error { return nil }

// GPIOHaptics is not available on non-Linux platforms.
type GPIOHaptics struct{}

// NewGPIOHaptics returns an error on non-Linux platforms.
func NewGPIOHaptics(chip string, pin int) (*GPIOHaptics, error) {
	return nil, errUnsupported
}

// Vibrate is not implemented on non-Linux platforms.
func (h *GPIOHaptics) Vibrate(d time.Duration) error { return errUnsupported }

// Close is a no-op on non-Linux platforms.
func (h *GPIOHaptics) Close() error { return nil }
