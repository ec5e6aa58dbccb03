package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the booking controller and the
// prerequisite validator matches exactly one of these with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrConflict            = errors.New("conflict")
	ErrInvalidState        = errors.New("invalid state")
	ErrPrerequisitesNotMet = errors.New("prerequisites not met")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrForbidden           = errors.New("forbidden")
	ErrInfrastructure      = errors.New("infrastructure failure")
)

// Error carries a kind sentinel, a human readable message and an optional cause
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func NewNotFoundError(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidArgumentError(format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidStateError(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

func NewCapacityExceededError(format string, args ...any) error {
	return &Error{Kind: ErrCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// NewInfrastructureError wraps a storage or transport failure that is not part of the taxonomy
func NewInfrastructureError(message string, cause error) error {
	return &Error{Kind: ErrInfrastructure, Message: message, Cause: cause}
}

// PrerequisitesNotMetError lists the prerequisite topics a student has not completed
type PrerequisitesNotMetError struct {
	Missing []string
}

func (e *PrerequisitesNotMetError) Error() string {
	return fmt.Sprintf("prerequisites not met: missing %s", strings.Join(e.Missing, ", "))
}

func (e *PrerequisitesNotMetError) Unwrap() error { return ErrPrerequisitesNotMet }

// KindOf returns the kind sentinel err matches, or nil for errors outside the taxonomy
func KindOf(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrInvalidArgument,
		ErrConflict,
		ErrInvalidState,
		ErrPrerequisitesNotMet,
		ErrCapacityExceeded,
		ErrForbidden,
		ErrInfrastructure,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
