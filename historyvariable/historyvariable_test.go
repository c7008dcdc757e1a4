// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package historyvariable

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/diffeo/go-camunda/enginetest"
	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const engineURL = "http://localhost:8080/engine-rest"

func intPtr(i int) *int {
	return &i
}

func TestQueryParameters(t *testing.T) {
	deserialize := false
	req, err := GetList(engineURL, Query{
		VariableNameLike:        "order%",
		VariableNamesIgnoreCase: true,
		ProcessInstanceIDIn:     []string{"p1", "p2"},
		TenantIDIn:              []string{"acme"},
		DeserializeValues:       &deserialize,
		SortBy:                  SortByTenantID,
		Descending:              true,
		FirstResult:             intPtr(10),
		MaxResults:              intPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, engineURL+"/history/variable-instance", req.URL())
	assert.Equal(t, DefaultTimeout, req.Timeout)
	assert.Empty(t, req.BodyParameters())

	query := req.QueryParameters()
	assert.ElementsMatch(t, []string{
		"variableNameLike", "variableNamesIgnoreCase",
		"processInstanceIdIn", "tenantIdIn", "deserializeValues",
		"sortBy", "sortOrder", "firstResult", "maxResults",
	}, query.Names())
	get := func(name string) interface{} {
		value, _ := query.Get(name)
		return value
	}
	assert.Equal(t, "tenantId", get("sortBy"))
	assert.Equal(t, "desc", get("sortOrder"))
	assert.Equal(t, false, get("deserializeValues"))
	assert.Equal(t, []string{"p1", "p2"}, get("processInstanceIdIn"))
}

func TestQueryEmpty(t *testing.T) {
	req, err := GetList(engineURL, Query{})
	require.NoError(t, err)
	assert.Empty(t, req.QueryParameters())
}

func TestDescendingWithoutSortKey(t *testing.T) {
	req, err := GetList(engineURL, Query{Descending: true})
	require.NoError(t, err)
	_, ok := req.QueryParameters().Get("sortOrder")
	assert.False(t, ok)
}

func TestBadSortKey(t *testing.T) {
	_, err := GetList(engineURL, Query{SortBy: SortKey(42)})
	assert.True(t, errors.Is(err, param.ErrInvalidValue))
}

func TestNegativePaging(t *testing.T) {
	_, err := GetList(engineURL, Query{MaxResults: intPtr(-1)})
	assert.True(t, errors.Is(err, param.ErrInvalidValue))
}

func TestCountDropsPaging(t *testing.T) {
	req, err := Count(engineURL, Query{
		VariableName: "x",
		SortBy:       SortByVariableName,
		FirstResult:  intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, engineURL+"/history/variable-instance/count", req.URL())
	assert.Equal(t, []string{"variableName"}, req.QueryParameters().Names())
}

// Suite runs history queries against a fake engine.
type Suite struct {
	suite.Suite
	Engine *enginetest.Engine
	Server *httptest.Server
	ctx    context.Context
}

func (s *Suite) SetupTest() {
	s.Engine = enginetest.New()
	s.Server = httptest.NewServer(s.Engine)
	s.ctx = context.Background()

	for _, v := range []restdata.HistoryVariableInstance{
		{ID: "v1", Name: "orderId", Type: "String", Value: "A-1", ProcessInstanceID: "p1", State: "CREATED"},
		{ID: "v2", Name: "orderTotal", Type: "Integer", Value: int64(12), ProcessInstanceID: "p1", State: "CREATED", TenantID: "acme"},
		{ID: "v3", Name: "customer", Type: "String", Value: "bob", ProcessInstanceID: "p2", State: "CREATED"},
		{ID: "v4", Name: "orderNote", Type: "String", Value: "gone", ProcessInstanceID: "p2", State: "DELETED"},
	} {
		s.Engine.AddHistoryVariable(v)
	}
}

func (s *Suite) TearDownTest() {
	s.Server.Close()
}

func TestHistoryVariable(t *testing.T) {
	suite.Run(t, new(Suite))
}

func (s *Suite) list(q Query) []restdata.HistoryVariableInstance {
	req, err := GetList(s.Server.URL, q)
	s.Require().NoError(err)
	vars, err := req.Send(s.ctx)
	s.Require().NoError(err)
	return vars
}

func names(vars []restdata.HistoryVariableInstance) []string {
	result := make([]string, len(vars))
	for i, v := range vars {
		result[i] = v.Name
	}
	return result
}

func (s *Suite) TestListAll() {
	vars := s.list(Query{SortBy: SortByVariableName})
	s.Equal([]string{"customer", "orderId", "orderTotal"}, names(vars))
	s.Equal("A-1", vars[1].Value)
	s.Equal("p1", vars[1].ProcessInstanceID)
	s.Equal("", vars[1].TenantID)
	s.Equal("acme", vars[2].TenantID)
}

func (s *Suite) TestListLike() {
	vars := s.list(Query{
		VariableNameLike: "order%",
		IncludeDeleted:   true,
		SortBy:           SortByVariableName,
		Descending:       true,
	})
	s.Equal([]string{"orderTotal", "orderNote", "orderId"}, names(vars))
}

func (s *Suite) TestListPaged() {
	vars := s.list(Query{
		SortBy:      SortByVariableName,
		FirstResult: intPtr(1),
		MaxResults:  intPtr(1),
	})
	s.Equal([]string{"orderId"}, names(vars))
}

func (s *Suite) TestListByProcessInstance() {
	vars := s.list(Query{ProcessInstanceIDIn: []string{"p2"}})
	s.Equal([]string{"customer"}, names(vars))

	req, ok := s.Engine.LastRequest()
	s.Require().True(ok)
	s.Equal("/history/variable-instance", req.Path)
	s.Equal("p2", req.Query.Get("processInstanceIdIn"))
}

func (s *Suite) TestListEmpty() {
	vars := s.list(Query{VariableName: "nothing"})
	s.NotNil(vars)
	s.Empty(vars)
}

func (s *Suite) TestCount() {
	req, err := Count(s.Server.URL, Query{ProcessInstanceID: "p1"})
	s.Require().NoError(err)
	n, err := req.Send(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)
}
