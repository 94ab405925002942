// Package alarm wires the pure gesture rules to the sensor, the feedback
// outputs and the credential check.
//
// Nothing in this package locks: a Controller and its Dispatcher must only be
// used from one goroutine, the event loop. Collaborator callbacks reach that
// goroutine through a Scheduler.
package alarm

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means sensor access was refused; the controller
	// stays disarmed.
	ErrPermissionDenied = errors.New("alarm: motion permission denied")

	// ErrCredentialMismatch means a wrong disarm password was submitted.
	ErrCredentialMismatch = errors.New("alarm: credential mismatch")

	// ErrAuthFailure means the credential could not be checked at all.
	// It is handled exactly like a mismatch.
	ErrAuthFailure = errors.New("alarm: auth failure")

	// ErrEffectStart means the flashlight or vibration motor rejected a request.
	ErrEffectStart = errors.New("alarm: effect start failed")

	// ErrNotArmed is returned for operations that need an armed controller.
	ErrNotArmed = errors.New("alarm: not armed")

	// ErrBusy is returned by Toggle while arming or waiting for a credential.
	ErrBusy = errors.New("alarm: operation in progress")
)

// State is the arm/disarm controller state.
type State int

const (
	StateDisarmed State = iota
	StateArming
	StateArmed
	StateAwaitingCredential
)

func (s State) String() string {
	switch s {
	case StateDisarmed:
		return "DISARMED"
	case StateArming:
		return "ARMING"
	case StateArmed:
		return "ARMED"
	case StateAwaitingCredential:
		return "AWAITING_CREDENTIAL"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Armed reports whether the detector is logically armed in state s.
// A pending credential prompt does not disarm.
func (s State) Armed() bool {
	return s == StateArmed || s == StateAwaitingCredential
}
