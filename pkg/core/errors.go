package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Handlers and detectors wrap these
// with fmt.Errorf("...: %w", ...) so callers can classify with errors.Is.
var (
	// ErrElementNotFound means a selector matched nothing within its timeout.
	ErrElementNotFound = errors.New("element not found")

	// ErrNavigation means the session could not load a URL.
	ErrNavigation = errors.New("navigation failed")

	// ErrLoginFailed means the login success indicator never appeared.
	ErrLoginFailed = errors.New("login failed")

	// ErrBlockingDetected means the target served a blocked/denied page and
	// recovery did not clear it.
	ErrBlockingDetected = errors.New("blocking detected")

	// ErrCaptchaDetected means a CAPTCHA challenge was found and not resolved.
	ErrCaptchaDetected = errors.New("captcha detected")

	// ErrCircuitOpen means the circuit breaker refused the call without
	// attempting it. Callers should report the item as skipped, not failed.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrSessionClosed means an automation session was used after Close.
	ErrSessionClosed = errors.New("session closed")
)

// UnknownActionError indicates a workflow step names an action with no
// registered handler. This is a configuration error, fatal to the item.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Action)
}

// StepExecutionError wraps a handler failure with the step that produced it.
type StepExecutionError struct {
	Action string
	Index  int
	Err    error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Action, e.Err)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Err
}
