package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindEventNotFound
	KindEventUnavailable
	KindDuplicateRegistration
	KindInsufficientCapacity
	KindHasDependents
	KindNotFound
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindEventNotFound:
		return "event_not_found"
	case KindEventUnavailable:
		return "event_unavailable"
	case KindDuplicateRegistration:
		return "duplicate_registration"
	case KindInsufficientCapacity:
		return "insufficient_capacity"
	case KindHasDependents:
		return "has_dependents"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient_error"
	default:
		return "unknown"
	}
}

// Error is the typed result of every rejected ledger call. Only the fields
// that belong to Kind are set.
type Error struct {
	Kind    Kind
	Message string

	ExistingID     int64             // DuplicateRegistration
	Remaining      int               // InsufficientCapacity
	DependentCount int               // HasDependents
	Fields         map[string]string // Validation

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrTransient) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrEventNotFound         = &Error{Kind: KindEventNotFound}
	ErrEventUnavailable      = &Error{Kind: KindEventUnavailable}
	ErrDuplicateRegistration = &Error{Kind: KindDuplicateRegistration}
	ErrInsufficientCapacity  = &Error{Kind: KindInsufficientCapacity}
	ErrHasDependents         = &Error{Kind: KindHasDependents}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrTransient             = &Error{Kind: KindTransient}
)

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

func validationError(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func eventNotFound(eventID int64) *Error {
	return &Error{Kind: KindEventNotFound, Message: fmt.Sprintf("event %d does not exist", eventID)}
}

func eventUnavailable(eventID int64, reason string) *Error {
	return &Error{Kind: KindEventUnavailable, Message: fmt.Sprintf("event %d %s", eventID, reason)}
}

func duplicateRegistration(existingID int64) *Error {
	return &Error{
		Kind:       KindDuplicateRegistration,
		Message:    "this email is already registered for the event",
		ExistingID: existingID,
	}
}

func insufficientCapacity(remaining int) *Error {
	if remaining < 0 {
		remaining = 0
	}
	return &Error{
		Kind:      KindInsufficientCapacity,
		Message:   fmt.Sprintf("only %d tickets remaining", remaining),
		Remaining: remaining,
	}
}

func hasDependents(count int) *Error {
	return &Error{
		Kind:           KindHasDependents,
		Message:        fmt.Sprintf("event has %d registrations", count),
		DependentCount: count,
	}
}

func notFound(what string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", what, id)}
}

func transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}
