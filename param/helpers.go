// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package param

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// IsTrue is a Provide predicate that sends a parameter only when its
// value is boolean true.  Flag filters use this so that false is
// never sent.
func IsTrue(s *Set, value interface{}) bool {
	b, ok := value.(bool)
	return ok && b
}

// WhenBound returns a Provide predicate that sends a parameter only
// when the sibling descriptor other has a value, for instance a sort
// order that only makes sense with a sort key.
func WhenBound(other *Descriptor) func(*Set, interface{}) bool {
	return func(s *Set, value interface{}) bool {
		return s.IsBound(other)
	}
}

// Check returns a Validate function applying a
// github.com/go-playground/validator tag such as "gte=0" to a value.
func Check(tag string) func(interface{}) error {
	return func(value interface{}) error {
		return validate.Var(value, tag)
	}
}

var (
	// NonNegative rejects negative numbers.
	NonNegative = Check("gte=0")

	// Required rejects zero values, such as empty strings.
	Required = Check("required")
)

// BindString binds a string value unless it is empty.
func BindString(s *Set, d *Descriptor, value string) error {
	if value == "" {
		return nil
	}
	return s.Bind(d, value)
}

// BindStrings binds a string slice unless it is empty.
func BindStrings(s *Set, d *Descriptor, values []string) error {
	if len(values) == 0 {
		return nil
	}
	return s.Bind(d, values)
}

// BindPtr binds the target of a pointer unless the pointer is nil.
func BindPtr[T any](s *Set, d *Descriptor, value *T) error {
	if value == nil {
		return nil
	}
	return s.Bind(d, *value)
}

// BindNonZero binds a value unless it is its type's zero value.
func BindNonZero[T comparable](s *Set, d *Descriptor, value T) error {
	var zero T
	if value == zero {
		return nil
	}
	return s.Bind(d, value)
}

// Binder accumulates the first error of a sequence of bindings, so a
// constructor can bind many parameters and check once.
type Binder struct {
	Set *Set
	Err error
}

// Bind binds a value if no earlier binding failed.
func (b *Binder) Bind(d *Descriptor, value interface{}) *Binder {
	if b.Err == nil {
		b.Err = b.Set.Bind(d, value)
	}
	return b
}

// String binds a string value unless it is empty.
func (b *Binder) String(d *Descriptor, value string) *Binder {
	if b.Err == nil {
		b.Err = BindString(b.Set, d, value)
	}
	return b
}

// Strings binds a string slice unless it is empty.
func (b *Binder) Strings(d *Descriptor, values []string) *Binder {
	if b.Err == nil {
		b.Err = BindStrings(b.Set, d, values)
	}
	return b
}

// Flag binds a boolean.  Flags are usually paired with IsTrue, so
// binding false has no visible effect.
func (b *Binder) Flag(d *Descriptor, value bool) *Binder {
	return b.Bind(d, value)
}

// Int binds an optional integer.
func (b *Binder) Int(d *Descriptor, value *int) *Binder {
	if b.Err == nil {
		b.Err = BindPtr(b.Set, d, value)
	}
	return b
}

// Int64 binds an optional 64-bit integer.
func (b *Binder) Int64(d *Descriptor, value *int64) *Binder {
	if b.Err == nil {
		b.Err = BindPtr(b.Set, d, value)
	}
	return b
}

// Bool binds an optional boolean.
func (b *Binder) Bool(d *Descriptor, value *bool) *Binder {
	if b.Err == nil {
		b.Err = BindPtr(b.Set, d, value)
	}
	return b
}

// Time binds a timestamp unless it is the zero time.
func (b *Binder) Time(d *Descriptor, value time.Time) *Binder {
	if b.Err == nil && !value.IsZero() {
		b.Err = b.Set.Bind(d, value)
	}
	return b
}
