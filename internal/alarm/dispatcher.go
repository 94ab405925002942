package alarm

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/panic-alarm/internal/audio"
	"github.com/sweeney/panic-alarm/internal/device"
	"github.com/sweeney/panic-alarm/internal/logic"
)

// Token identifies one scheduled cleanup. The zero Token is never issued.
type Token uint64

// cleanup is the deferred half of an effect.
type cleanup struct {
	token     Token
	due       time.Time
	gesture   logic.Gesture // GestureNone for the alarm
	flashOn   bool
	vibrating bool
	stopAudio bool
}

// Dispatcher starts feedback effects and owns the single pending cleanup.
// Starting an effect always cancels the previous cleanup first, releasing
// whatever hardware it still held.
type Dispatcher struct {
	player  audio.Player
	flash   device.Flashlight
	haptics device.Haptics

	last    Token
	pending *cleanup
}

// NewDispatcher creates a dispatcher over the given outputs.
func NewDispatcher(player audio.Player, flash device.Flashlight, haptics device.Haptics) *Dispatcher {
	return &Dispatcher{player: player, flash: flash, haptics: haptics}
}

// Fire starts the effect for g. It returns the cleanup token (zero when the
// effect needs no cleanup) and any start failures joined together.
func (d *Dispatcher) Fire(g logic.Gesture, now time.Time) (Token, error) {
	e, ok := logic.EffectFor(g)
	if !ok {
		return 0, fmt.Errorf("alarm: no effect for %s", g)
	}
	return d.start(e, g, now)
}

// Alarm starts the wrong-credential effect.
func (d *Dispatcher) Alarm(now time.Time) (Token, error) {
	return d.start(logic.AlarmEffect(), logic.GestureNone, now)
}

func (d *Dispatcher) start(e logic.Effect, g logic.Gesture, now time.Time) (Token, error) {
	var errs []error
	if err := d.Cancel(); err != nil {
		errs = append(errs, err)
	}

	// Audio first: a hardware failure must not keep the clip from playing.
	if err := d.player.Play(e.Clip); err != nil {
		errs = append(errs, fmt.Errorf("play %q: %w", e.Clip, err))
	}

	vibrating := false
	if e.Vibrate > 0 {
		if err := d.haptics.Vibrate(e.Vibrate); err != nil {
			errs = append(errs, fmt.Errorf("%w: vibrate: %w", ErrEffectStart, err))
		} else {
			vibrating = true
		}
	}

	flashOn := false
	if e.Flash {
		if err := d.flash.SwitchOn(e.FlashIntensity); err != nil {
			errs = append(errs, fmt.Errorf("%w: flashlight: %w", ErrEffectStart, err))
		} else {
			flashOn = true
		}
	}

	if e.Hold <= 0 {
		return 0, errors.Join(errs...)
	}

	d.last++
	d.pending = &cleanup{
		token:     d.last,
		due:       now.Add(e.Hold),
		gesture:   g,
		flashOn:   flashOn,
		vibrating: vibrating,
		stopAudio: e.StopAudio,
	}
	return d.last, errors.Join(errs...)
}

// Tick runs the pending cleanup if it is due. It returns the gesture whose
// effect finished; ok is false when nothing ran.
func (d *Dispatcher) Tick(now time.Time) (g logic.Gesture, ok bool, err error) {
	p := d.pending
	if p == nil || now.Before(p.due) {
		return logic.GestureNone, false, nil
	}
	d.pending = nil
	return p.gesture, true, d.release(p, false)
}

// Cancel drops the pending cleanup and performs its release immediately, so
// nothing it held stays on and nothing runs later. A vibration that has not
// run its course is stopped.
func (d *Dispatcher) Cancel() error {
	p := d.pending
	if p == nil {
		return nil
	}
	d.pending = nil
	return d.release(p, true)
}

// CancelToken cancels the pending cleanup only if it is still tok.
func (d *Dispatcher) CancelToken(tok Token) (bool, error) {
	if d.pending == nil || d.pending.token != tok {
		return false, nil
	}
	return true, d.Cancel()
}

// Pending returns the token and due time of the scheduled cleanup.
func (d *Dispatcher) Pending() (Token, time.Time, bool) {
	if d.pending == nil {
		return 0, time.Time{}, false
	}
	return d.pending.token, d.pending.due, true
}

// release undoes what p still holds. The motor stops on its own when the
// effect expires, so it is only stopped when the effect is cut short.
func (d *Dispatcher) release(p *cleanup, cancelled bool) error {
	var errs []error
	if cancelled && p.vibrating {
		if err := d.haptics.Vibrate(0); err != nil {
			errs = append(errs, fmt.Errorf("vibration off: %w", err))
		}
	}
	if p.flashOn {
		if err := d.flash.SwitchOff(); err != nil {
			errs = append(errs, fmt.Errorf("flashlight off: %w", err))
		}
	}
	if p.stopAudio {
		if err := d.player.Pause(); err != nil {
			errs = append(errs, fmt.Errorf("pause audio: %w", err))
		}
	}
	return errors.Join(errs...)
}
