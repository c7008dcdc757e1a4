// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package param

// Field is one wire name and its wire value.
type Field struct {
	Name  string
	Value interface{}
}

// Fields is an ordered mapping from wire names to wire values.
type Fields []Field

// Get returns the value for a wire name.
func (f Fields) Get(name string) (interface{}, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// Names returns the wire names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Map converts f to an unordered map, for instance to encode it as a
// JSON object.
func (f Fields) Map() map[string]interface{} {
	result := make(map[string]interface{}, len(f))
	for _, field := range f {
		result[field.Name] = field.Value
	}
	return result
}
