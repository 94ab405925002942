// Package device drives the physical feedback outputs: the flashlight LED and
// the vibration motor.
// The real implementation uses Linux GPIO character device lines.
// The fake implementations allow testing without hardware.
package device

import "time"

// Flashlight switches a torch LED.
type Flashlight interface {
	// SwitchOn lights the LED. Any intensity > 0 is treated as full on by
	// hardware without dimming support.
	SwitchOn(intensity float64) error

	// SwitchOff turns the LED off. Safe to call when already off.
	SwitchOff() error
}

// Haptics drives a vibration motor.
type Haptics interface {
	// Vibrate runs the motor for d and returns immediately.
	// A new call replaces any vibration still running; d <= 0 stops the
	// motor.
	Vibrate(d time.Duration) error
}

// Default line offsets (BCM numbering) on gpiochip0.
const (
	DefaultChip         = "gpiochip0"
	DefaultPinFlash     = 17
	DefaultPinVibration = 27
)
