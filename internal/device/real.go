//go:build linux

package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOFlashlight drives a torch LED wired to a GPIO output line.
type GPIOFlashlight struct {
	line *gpiocdev.Line
}

// NewGPIOFlashlight requests the line as an output, initially off.
func NewGPIOFlashlight(chip string, pin int) (*GPIOFlashlight, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request flashlight pin %d: %w", pin, err)
	}
	return &GPIOFlashlight{line: line}, nil
}

// SwitchOn drives the line high. The LED has no dimming, so any
// intensity > 0 is full brightness.
func (f *GPIOFlashlight) SwitchOn(intensity float64) error {
	v := 0
	if intensity > 0 {
		v = 1
	}
	if err := f.line.SetValue(v); err != nil {
		return fmt.Errorf("flashlight on: %w", err)
	}
	return nil
}

// SwitchOff drives the line low.
func (f *GPIOFlashlight) SwitchOff() error {
	if err := f.line.SetValue(0); err != nil {
		return fmt.Errorf("flashlight off: %w", err)
	}
	return nil
}

// Close turns the LED off and releases the line.
// Reconfigures the line as input with pull-down so the LED stays dark
// while nothing owns it.
func (f *GPIOFlashlight) Close() error {
	return releaseLine(f.line, "flashlight")
}

// GPIOHaptics drives a vibration motor wired to a GPIO output line.
type GPIOHaptics struct {
	line *gpiocdev.Line

	mu    sync.Mutex
	timer *time.Timer
}

// NewGPIOHaptics requests the line as an output, initially off.
func NewGPIOHaptics(chip string, pin int) (*GPIOHaptics, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request vibration pin %d: %w", pin, err)
	}
	return &GPIOHaptics{line: line}, nil
}

// Vibrate drives the motor for d. The motor is stopped by a timer owned by
// this type, so the caller does not schedule anything.
func (h *GPIOHaptics) Vibrate(d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if d <= 0 {
		return h.line.SetValue(0)
	}
	if err := h.line.SetValue(1); err != nil {
		return fmt.Errorf("vibration on: %w", err)
	}
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.timer = nil
		h.line.SetValue(0)
	})
	return nil
}

// Close stops the motor and releases the line.
func (h *GPIOHaptics) Close() error {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.mu.Unlock()
	return releaseLine(h.line, "vibration")
}

func releaseLine(line *gpiocdev.Line, name string) error {
	if line == nil {
		return nil
	}
	var errs []error
	if err := line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("%s off: %w", name, err))
	}
	if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
	}
	if err := line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
