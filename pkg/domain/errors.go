package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched through errors.Is by the typed errors below.
var (
	ErrOutOfRange   = errors.New("value out of range")
	ErrNotFound     = errors.New("not found")
	ErrConstraint   = errors.New("constraint violation")
	ErrTypeMismatch = errors.New("type mismatch")
)

// OutOfRangeError reports a rating, RPN, or criticality input/output outside
// its documented bounds.
type OutOfRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
	// Node names the record that carried the value, when known.
	Node string
}

func (e OutOfRangeError) Error() string {
	msg := fmt.Sprintf("%s = %g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
	if e.Node != "" {
		msg = fmt.Sprintf("%s: %s", e.Node, msg)
	}
	return msg
}

func (e OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// NotFoundError is returned when an id does not resolve in the working set.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConstraintError wraps a referential-integrity rejection from persistence.
type ConstraintError struct {
	Entity string
	ID     string
	Reason string
	Err    error
}

func (e ConstraintError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e ConstraintError) Unwrap() error        { return e.Err }
func (e ConstraintError) Is(target error) bool { return target == ErrConstraint }

// TypeMismatchError reports an attribute write whose value does not fit the
// record schema.
type TypeMismatchError struct {
	Entity    string
	Attribute string
	Err       error
}

func (e TypeMismatchError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("%s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Entity, e.Attribute, e.Err)
}

func (e TypeMismatchError) Unwrap() error        { return e.Err }
func (e TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }
