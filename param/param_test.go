// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package param

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sortKey int

const (
	sortByName sortKey = iota + 1
	sortByTenant
)

var (
	id        = &Descriptor{Name: "id", Kind: Path, Validate: Required}
	name      = &Descriptor{Name: "name", Kind: Query}
	suspended = &Descriptor{Name: "suspended", Kind: Query, Provide: IsTrue}
	sortBy    = &Descriptor{
		Name: "sortBy",
		Kind: Query,
		Mapping: map[interface{}]interface{}{
			sortByName:   "name",
			sortByTenant: "tenantId",
		},
		Strict: true,
	}
	sortOrder = &Descriptor{
		Name:    "sortOrder",
		Kind:    Query,
		Mapping: map[interface{}]interface{}{false: "asc", true: "desc"},
		Provide: WhenBound(sortBy),
	}
	retries = &Descriptor{Name: "retries", Kind: Body, Validate: NonNegative}
	worker  = &Descriptor{Name: "workerId", Kind: Body}

	testSchema = NewSchema(id, name, suspended, sortBy, sortOrder, retries, worker)
)

func TestProvideIsTrue(t *testing.T) {
	s := NewSet(testSchema)
	require.NoError(t, s.Bind(suspended, false))
	_, present := s.Collect(Query).Get("suspended")
	assert.False(t, present, "false flag should not be sent")

	require.NoError(t, s.Bind(suspended, true))
	value, present := s.Collect(Query).Get("suspended")
	assert.True(t, present)
	assert.Equal(t, true, value)
}

func TestProvideWhenBound(t *testing.T) {
	s := NewSet(testSchema)
	require.NoError(t, s.Bind(sortOrder, false))
	assert.Empty(t, s.Collect(Query))

	require.NoError(t, s.Bind(sortBy, sortByTenant))
	assert.Equal(t, Fields{
		{Name: "sortBy", Value: "tenantId"},
		{Name: "sortOrder", Value: "asc"},
	}, s.Collect(Query))

	require.NoError(t, s.Bind(sortOrder, true))
	value, _ := s.Collect(Query).Get("sortOrder")
	assert.Equal(t, "desc", value)
}

func TestStrictMapping(t *testing.T) {
	s := NewSet(testSchema)
	err := s.Bind(sortBy, sortKey(99))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidValue))
	assert.False(t, s.IsBound(sortBy))
}

func TestUnmappedPassesThrough(t *testing.T) {
	s := NewSet(testSchema)
	require.NoError(t, s.Bind(sortBy, sortByName))
	require.NoError(t, s.Bind(sortOrder, "sideways"))
	value, _ := s.Collect(Query).Get("sortOrder")
	assert.Equal(t, "sideways", value)
}

func TestValidateOnBind(t *testing.T) {
	s := NewSet(testSchema)
	err := s.Bind(retries, -1)
	require.Error(t, err)
	var invalid *InvalidValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "retries", invalid.Name)
	assert.Equal(t, -1, invalid.Value)
	assert.False(t, s.IsBound(retries))

	assert.NoError(t, s.Bind(retries, 0))
	assert.Error(t, s.Bind(id, ""))
}

func TestCollectOrderAndKinds(t *testing.T) {
	s := NewSet(testSchema)
	b := &Binder{Set: s}
	b.Bind(worker, "w1").Bind(retries, 3).String(name, "").Bind(id, "abc")
	require.NoError(t, b.Err)

	assert.Equal(t, []string{"retries", "workerId"}, s.Collect(Body).Names())
	assert.Empty(t, s.Collect(Query))
	assert.Equal(t, map[string]interface{}{"id": "abc"}, s.PathValues())
	assert.Empty(t, s.Unbound(Path))
}

func TestBinderStopsAtFirstError(t *testing.T) {
	s := NewSet(testSchema)
	b := &Binder{Set: s}
	b.Bind(retries, -5).Bind(worker, "w1")
	assert.Error(t, b.Err)
	assert.False(t, s.IsBound(worker))
}

func TestBindNil(t *testing.T) {
	s := NewSet(testSchema)
	require.NoError(t, s.Bind(name, "x"))
	require.NoError(t, s.Bind(name, nil))
	assert.False(t, s.IsBound(name))

	var n *int
	require.NoError(t, BindPtr(s, retries, n))
	assert.False(t, s.IsBound(retries))
	require.NoError(t, BindNonZero(s, sortBy, sortKey(0)))
	assert.False(t, s.IsBound(sortBy))
}

func TestUnknownParameter(t *testing.T) {
	other := &Descriptor{Name: "other", Kind: Query}
	s := NewSet(testSchema)
	assert.Equal(t, ErrUnknownParameter{Name: "other"}, s.Bind(other, "x"))
	assert.Panics(t, func() { s.Replace(other, "x") })
}

func TestSchemaDuplicates(t *testing.T) {
	assert.Panics(t, func() {
		NewSchema(name, &Descriptor{Name: "name", Kind: Query})
	})
	assert.Panics(t, func() { NewSchema(name, name) })
	assert.NotPanics(t, func() {
		NewSchema(name, &Descriptor{Name: "name", Kind: Body})
	})
}

func TestSchemaExtend(t *testing.T) {
	parent := NewSchema(name, suspended)
	extra := &Descriptor{Name: "extra", Kind: Query}
	child := parent.Extend(extra)
	assert.Equal(t, []*Descriptor{name, suspended, extra}, child.Descriptors())
	assert.False(t, parent.Has(extra))
	assert.Equal(t, extra, child.Lookup(Query, "extra"))
	assert.Nil(t, child.Lookup(Body, "extra"))
}
