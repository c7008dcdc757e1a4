// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package param

// Set holds the parameter values of one request.  A descriptor with
// no entry is unbound.
type Set struct {
	schema *Schema
	values map[*Descriptor]interface{}
}

// NewSet creates an empty value store for a schema.
func NewSet(schema *Schema) *Set {
	return &Set{
		schema: schema,
		values: make(map[*Descriptor]interface{}),
	}
}

// Schema returns the schema this set was created for.
func (s *Set) Schema() *Schema {
	return s.schema
}

// Bind validates value and stores it for d.  A nil value unbinds d.
// Validation happens here, not when the request is sent.
func (s *Set) Bind(d *Descriptor, value interface{}) error {
	if !s.schema.Has(d) {
		return ErrUnknownParameter{Name: d.Name}
	}
	if value == nil {
		delete(s.values, d)
		return nil
	}
	if err := d.check(value); err != nil {
		return err
	}
	s.values[d] = value
	return nil
}

// Replace stores value for d without validation.  Builder methods
// that grow a body collection (variables, topics) use this to store
// the grown collection.  Panics if d is not in the schema.
func (s *Set) Replace(d *Descriptor, value interface{}) {
	if !s.schema.Has(d) {
		panic(ErrUnknownParameter{Name: d.Name})
	}
	s.values[d] = value
}

// Value returns the bound value of d, and whether it is bound.
func (s *Set) Value(d *Descriptor) (interface{}, bool) {
	v, ok := s.values[d]
	return v, ok
}

// IsBound reports whether d has a value.
func (s *Set) IsBound(d *Descriptor) bool {
	_, ok := s.values[d]
	return ok
}

// provided decides whether d is sent.
func (s *Set) provided(d *Descriptor) bool {
	value, bound := s.values[d]
	if d.Provide != nil {
		return d.Provide(s, value)
	}
	return bound
}

// Collect returns the wire names and values of all provided
// parameters of a kind, in schema order.
func (s *Set) Collect(kind Kind) Fields {
	fields := Fields{}
	for _, d := range s.schema.descriptors {
		if d.Kind != kind || !s.provided(d) {
			continue
		}
		value, _ := d.wire(s.values[d])
		fields = append(fields, Field{Name: d.Name, Value: value})
	}
	return fields
}

// PathValues returns the wire values of bound path parameters keyed
// by wire name, suitable for URI template expansion.
func (s *Set) PathValues() map[string]interface{} {
	result := make(map[string]interface{})
	for _, field := range s.Collect(Path) {
		result[field.Name] = field.Value
	}
	return result
}

// Unbound returns the wire names of the descriptors of a kind that
// have no value.
func (s *Set) Unbound(kind Kind) []string {
	var names []string
	for _, d := range s.schema.descriptors {
		if d.Kind == kind && !s.IsBound(d) {
			names = append(names, d.Name)
		}
	}
	return names
}
