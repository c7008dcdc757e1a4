// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package param

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is matched by errors.Is for every InvalidValueError.
var ErrInvalidValue = errors.New("invalid parameter value")

// errUnmapped is the cause of an InvalidValueError for a value missing
// from a strict mapping.
var errUnmapped = errors.New("value has no wire mapping")

// InvalidValueError is returned when binding a value that fails
// validation or is missing from a strict mapping.
type InvalidValueError struct {
	// Name is the wire name of the parameter.
	Name string

	// Value is the rejected value.
	Value interface{}

	// Err is the underlying validation failure.
	Err error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for parameter %q: %v", e.Value, e.Name, e.Err)
}

// Is makes errors.Is(err, ErrInvalidValue) true.
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

// ErrUnknownParameter is returned when binding a descriptor that is
// not part of a set's schema.
type ErrUnknownParameter struct {
	Name string
}

func (e ErrUnknownParameter) Error() string {
	return fmt.Sprintf("parameter %q is not declared for this request", e.Name)
}
