// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package param provides declarative parameter descriptors for REST
// requests.  A request type declares a Schema, an ordered list of
// Descriptor values, once at package initialization.  Each request
// instance then holds its own Set of values for those descriptors.
//
// Descriptors come in three kinds.  Path parameters are substituted
// into a URL template, query parameters become the query string, and
// body parameters become members of the JSON request body.  The Set
// decides which parameters are sent and how their values look on the
// wire:
//
//     var (
//         sortBy    = &param.Descriptor{Name: "sortBy", Kind: param.Query}
//         sortOrder = &param.Descriptor{
//             Name:    "sortOrder",
//             Kind:    param.Query,
//             Mapping: map[interface{}]interface{}{false: "asc", true: "desc"},
//             Provide: param.WhenBound(sortBy),
//         }
//         schema = param.NewSchema(sortBy, sortOrder)
//     )
package param

import (
	"fmt"
	"reflect"
)

// Kind says where a parameter is placed in an outgoing request.
type Kind int

const (
	// Path parameters substitute {name} placeholders in the URL
	// template.
	Path Kind = iota

	// Query parameters are added to the query string.
	Query

	// Body parameters are members of the JSON request body.
	Body
)

func (k Kind) String() string {
	switch k {
	case Path:
		return "path"
	case Query:
		return "query"
	case Body:
		return "body"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Descriptor is a named, typed slot of a request type.  Descriptors
// are static: they are created once and shared by every request of a
// type.  Values live in a Set.
type Descriptor struct {
	// Name is the wire name used in the path template, query
	// string, or body.
	Name string

	// Kind says where the parameter goes.
	Kind Kind

	// Mapping, if non-nil, translates a bound value to its wire
	// value.  Values not in the mapping pass through unchanged,
	// unless Strict is set.
	Mapping map[interface{}]interface{}

	// Strict requires every bound value to appear in Mapping.
	Strict bool

	// Provide, if non-nil, decides whether the parameter is sent.
	// It sees the whole value store and this parameter's value,
	// which is nil if the parameter is unbound.  If Provide is nil,
	// the parameter is sent whenever it is bound.
	Provide func(s *Set, value interface{}) bool

	// Validate, if non-nil, checks a value when it is bound.
	Validate func(value interface{}) error
}

func (d *Descriptor) String() string {
	return d.Kind.String() + " parameter " + d.Name
}

// wire returns the wire value for a bound value.
func (d *Descriptor) wire(value interface{}) (interface{}, bool) {
	if d.Mapping == nil {
		return value, true
	}
	if value != nil && !reflect.TypeOf(value).Comparable() {
		return value, !d.Strict
	}
	mapped, ok := d.Mapping[value]
	if ok {
		return mapped, true
	}
	return value, !d.Strict
}

// check runs the mapping and validation constraints on a value.
func (d *Descriptor) check(value interface{}) error {
	if _, ok := d.wire(value); !ok {
		return &InvalidValueError{Name: d.Name, Value: value, Err: errUnmapped}
	}
	if d.Validate != nil {
		if err := d.Validate(value); err != nil {
			return &InvalidValueError{Name: d.Name, Value: value, Err: err}
		}
	}
	return nil
}

// Schema is the ordered descriptor list of one request type.
type Schema struct {
	descriptors []*Descriptor
	index       map[*Descriptor]int
}

// NewSchema builds a schema from descriptors in declaration order.
// It panics if two descriptors of the same kind share a wire name, or
// if a descriptor appears twice; schemas are built at package
// initialization, so this is a programming error.
func NewSchema(descriptors ...*Descriptor) *Schema {
	s := &Schema{index: make(map[*Descriptor]int)}
	names := make(map[Kind]map[string]struct{})
	for _, d := range descriptors {
		if _, dup := s.index[d]; dup {
			panic(fmt.Errorf("param: %v declared twice", d))
		}
		if names[d.Kind] == nil {
			names[d.Kind] = make(map[string]struct{})
		}
		if _, dup := names[d.Kind][d.Name]; dup {
			panic(fmt.Errorf("param: duplicate %v", d))
		}
		names[d.Kind][d.Name] = struct{}{}
		s.index[d] = len(s.descriptors)
		s.descriptors = append(s.descriptors, d)
	}
	return s
}

// Extend returns a new schema containing the descriptors of s
// followed by more.
func (s *Schema) Extend(more ...*Descriptor) *Schema {
	all := make([]*Descriptor, 0, len(s.descriptors)+len(more))
	all = append(all, s.descriptors...)
	all = append(all, more...)
	return NewSchema(all...)
}

// Descriptors returns the descriptors of s in order.
func (s *Schema) Descriptors() []*Descriptor {
	return append([]*Descriptor(nil), s.descriptors...)
}

// Has reports whether d is part of s.
func (s *Schema) Has(d *Descriptor) bool {
	_, ok := s.index[d]
	return ok
}

// Lookup finds a descriptor by kind and wire name.
func (s *Schema) Lookup(kind Kind, name string) *Descriptor {
	for _, d := range s.descriptors {
		if d.Kind == kind && d.Name == name {
			return d
		}
	}
	return nil
}
