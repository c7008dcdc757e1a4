// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is not JSON.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// ErrMissingField is matched by errors.Is for every MissingFieldError.
var ErrMissingField = errors.New("missing required field")

// MissingFieldError is returned by the Load functions when a required
// key is absent from a response payload.
type MissingFieldError struct {
	// Record names the record type being loaded.
	Record string

	// Field is the missing JSON key.
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Record, e.Field)
}

// Is makes errors.Is(err, ErrMissingField) true.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
