// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package processinst

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diffeo/go-camunda/enginetest"
	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const engineURL = "http://localhost:8080/engine-rest"

func TestDeleteDefaults(t *testing.T) {
	req, err := Delete(engineURL, "anId", DeleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, engineURL+"/process-instance/anId", req.URL())
	assert.Empty(t, req.BodyParameters())
	assert.Equal(t, param.Fields{{Name: "failIfNotExists", Value: true}}, req.QueryParameters())
}

func TestDeleteOptions(t *testing.T) {
	req, err := Delete(engineURL, "anId", DeleteOptions{
		SkipCustomListeners: true,
		SkipSubprocesses:    true,
		AllowMissing:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, param.Fields{
		{Name: "skipCustomListeners", Value: true},
		{Name: "skipSubprocesses", Value: true},
		{Name: "failIfNotExists", Value: false},
	}, req.QueryParameters())
}

func TestDeleteRequiresID(t *testing.T) {
	_, err := Delete(engineURL, "", DeleteOptions{})
	assert.True(t, errors.Is(err, param.ErrInvalidValue))
}

func TestListQueryParameters(t *testing.T) {
	req, err := GetList(engineURL, ListQuery{
		ProcessInstanceIDs: []string{"a", "b"},
		Suspended:          true,
		SortBy:             SortByBusinessKey,
		Descending:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, param.Fields{
		{Name: "processInstanceIds", Value: []string{"a", "b"}},
		{Name: "suspended", Value: true},
		{Name: "sortBy", Value: "businessKey"},
		{Name: "sortOrder", Value: "desc"},
	}, req.QueryParameters())
}

// Suite runs process instance requests against a fake engine.
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
	s.Engine.AddProcessInstance(restdata.ProcessInstance{ID: "p1", DefinitionID: "invoice:1", BusinessKey: "order-2"})
	s.Engine.AddProcessInstance(restdata.ProcessInstance{ID: "p2", DefinitionID: "invoice:1", BusinessKey: "order-1", Suspended: true})
	s.Engine.AddProcessInstance(restdata.ProcessInstance{ID: "p3", DefinitionID: "review:3", TenantID: "acme"})
}

func (s *Suite) TearDownTest() {
	s.Server.Close()
}

func TestProcessInstance(t *testing.T) {
	suite.Run(t, new(Suite))
}

func ids(instances []restdata.ProcessInstance) []string {
	result := make([]string, len(instances))
	for i, p := range instances {
		result[i] = p.ID
	}
	return result
}

func (s *Suite) TestGet() {
	req, err := Get(s.Server.URL, "p2")
	s.Require().NoError(err)
	p, err := req.Send(s.ctx)
	s.Require().NoError(err)
	s.Equal("invoice:1", p.DefinitionID)
	s.Equal("order-1", p.BusinessKey)
	s.True(p.Suspended)
	s.Equal("", p.TenantID)
}

func (s *Suite) TestGetList() {
	req, err := GetList(s.Server.URL, ListQuery{
		ProcessDefinitionID: "invoice:1",
		SortBy:              SortByBusinessKey,
	})
	s.Require().NoError(err)
	instances, err := req.Send(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"p2", "p1"}, ids(instances))

	req, err = GetList(s.Server.URL, ListQuery{Active: true, SortBy: SortByInstanceID, Descending: true})
	s.Require().NoError(err)
	instances, err = req.Send(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"p3", "p1"}, ids(instances))
}

func (s *Suite) TestCount() {
	req, err := Count(s.Server.URL, ListQuery{TenantIDIn: []string{"acme"}})
	s.Require().NoError(err)
	n, err := req.Send(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *Suite) TestDelete() {
	req, err := Delete(s.Server.URL, "p1", DeleteOptions{SkipIoMappings: true})
	s.Require().NoError(err)
	s.Require().NoError(req.Send(s.ctx))
	_, ok := s.Engine.ProcessInstance("p1")
	s.False(ok)

	last, ok := s.Engine.LastRequest()
	s.Require().True(ok)
	s.Equal(http.MethodDelete, last.Method)
	s.Equal("true", last.Query.Get("skipIoMappings"))
	s.Equal("true", last.Query.Get("failIfNotExists"))
}

func (s *Suite) TestDeleteMissing() {
	req, err := Delete(s.Server.URL, "nope", DeleteOptions{})
	s.Require().NoError(err)
	err = req.Send(s.ctx)
	var noSuccess *restclient.NoSuccessError
	if s.True(errors.As(err, &noSuccess)) {
		s.Equal(http.StatusNotFound, noSuccess.StatusCode)
	}

	req, err = Delete(s.Server.URL, "nope", DeleteOptions{AllowMissing: true})
	s.Require().NoError(err)
	s.NoError(req.Send(s.ctx))
}
