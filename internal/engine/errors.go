package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a recoverable fault in an agent call.
//
// Runtime errors include:
//   - Invalid argument: nil Condition, reserved priority, frozen event
//   - Action in condition: a command issued from Condition.Test
//   - Disabled: too many staged calls without a commit
//   - Capability missing: a team or paint call without the capability
//
// None of them affect other agents or the battle.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Agent names the agent that made the call.
	Agent string

	// Call names the Controller method.
	Call string

	// Details contains additional context.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeInvalidArgument   RuntimeErrorCode = "INVALID_ARGUMENT"
	ErrCodeFrozenEvent       RuntimeErrorCode = "FROZEN_EVENT"
	ErrCodeActionInCondition RuntimeErrorCode = "ACTION_IN_CONDITION"
	ErrCodeDisabled          RuntimeErrorCode = "DISABLED"
	ErrCodeCapabilityMissing RuntimeErrorCode = "CAPABILITY_MISSING"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Agent != "" && e.Call != "" {
		return fmt.Sprintf("%s: %s (agent=%s, call=%s)", e.Code, e.Message, e.Agent, e.Call)
	}
	if e.Call != "" {
		return fmt.Sprintf("%s: %s (call=%s)", e.Code, e.Message, e.Call)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// NotAttachedError is returned by any Controller command issued before a
// Peer is attached.
type NotAttachedError struct {
	Call string
}

func (e *NotAttachedError) Error() string {
	return fmt.Sprintf("%s: controller is not attached to a peer", e.Call)
}

// IsNotAttached reports whether err is a NotAttachedError.
func IsNotAttached(err error) bool {
	var na *NotAttachedError
	return errors.As(err, &na)
}

// IsInvalidArgument returns true for INVALID_ARGUMENT and FROZEN_EVENT
// errors. Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidArgument || re.Code == ErrCodeFrozenEvent
	}
	return false
}

func IsActionInCondition(err error) bool {
	return hasCode(err, ErrCodeActionInCondition)
}

func IsDisabled(err error) bool {
	return hasCode(err, ErrCodeDisabled)
}

func IsCapabilityMissing(err error) bool {
	return hasCode(err, ErrCodeCapabilityMissing)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newInvalidArgument(agent, call, msg string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidArgument,
		Message: msg,
		Agent:   agent,
		Call:    call,
		Cause:   cause,
	}
}

func newDisabledError(agent, call string, calls, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDisabled,
		Message: fmt.Sprintf("too many calls without a commit (%d > %d)", calls, limit),
		Agent:   agent,
		Call:    call,
		Details: map[string]string{
			"calls": fmt.Sprintf("%d", calls),
			"limit": fmt.Sprintf("%d", limit),
		},
	}
}
