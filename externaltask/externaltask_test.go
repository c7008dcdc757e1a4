// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package externaltask

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-camunda/enginetest"
	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const engineURL = "http://localhost:8080/engine-rest"

// Suite runs the external task requests against a fake engine.
type Suite struct {
	suite.Suite
	Clock  *clock.Mock
	Engine *enginetest.Engine
	Server *httptest.Server
	ctx    context.Context
}

func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Clock.Set(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Engine = enginetest.NewWithClock(s.Clock)
	s.Server = httptest.NewServer(s.Engine)
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	s.Server.Close()
}

func TestExternalTask(t *testing.T) {
	suite.Run(t, new(Suite))
}

func intPtr(i int) *int {
	return &i
}

func (s *Suite) addTask(id, topic string) {
	s.Engine.AddExternalTask(restdata.ExternalTask{
		ID:                  id,
		TopicName:           topic,
		ActivityID:          "anActivityId",
		ProcessInstanceID:   "aProcessInstanceId",
		ProcessDefinitionID: "aProcessDefinitionId",
		Retries:             intPtr(3),
	})
}

// lastBody returns the JSON body of the most recent request.
func (s *Suite) lastBody() string {
	req, ok := s.Engine.LastRequest()
	s.Require().True(ok)
	return string(req.Body)
}

func (s *Suite) TestGet() {
	s.addTask("task1", "t1")
	req, err := Get(s.Server.URL, "task1")
	s.Require().NoError(err)
	s.Equal(s.Server.URL+"/external-task/task1", req.URL())
	s.Empty(req.QueryParameters())
	s.Empty(req.BodyParameters())

	task, err := req.Send(s.ctx)
	s.Require().NoError(err)
	s.Equal("task1", task.ID)
	s.Equal("t1", task.TopicName)
	s.Nil(task.Suspended)
	s.Nil(task.BusinessKey)
	s.Nil(task.Variables)
	s.Nil(task.LockExpirationTime)
	if s.NotNil(task.Retries) {
		s.Equal(3, *task.Retries)
	}
}

func (s *Suite) TestGetMissing() {
	req, err := Get(s.Server.URL, "nope")
	s.Require().NoError(err)
	_, err = req.Send(s.ctx)
	s.True(errors.Is(err, restclient.ErrNoSuccess))
	var noSuccess *restclient.NoSuccessError
	if s.True(errors.As(err, &noSuccess)) {
		s.Equal(http.StatusNotFound, noSuccess.StatusCode)
		s.Contains(err.Error(), "External task with id nope does not exist")
	}
}

func (s *Suite) TestFetchAndLockEmpty() {
	req, err := FetchAndLock(s.Server.URL, "w1", 5, false)
	s.Require().NoError(err)
	tasks, err := req.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)
	s.NotNil(tasks)
	s.Len(tasks, 0)

	s.Equal(s.Server.URL+"/external-task/fetchAndLock", req.URL())
	s.JSONEq(`{
		"workerId": "w1",
		"maxTasks": 5,
		"usePriority": false,
		"topics": [
			{"topicName": "t1", "lockDuration": 1000, "deserializeValues": false}
		]
	}`, s.lastBody())
}

func (s *Suite) TestFetchAndLockLocks() {
	s.addTask("a", "t1")
	s.addTask("b", "t1")
	s.addTask("c", "t2")

	req, err := FetchAndLock(s.Server.URL, "w1", 10, false)
	s.Require().NoError(err)
	tasks, err := req.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal("a", tasks[0].ID)
	s.Equal("w1", tasks[0].WorkerID)
	if s.NotNil(tasks[0].LockExpirationTime) {
		s.True(s.Clock.Now().Add(time.Second).Equal(*tasks[0].LockExpirationTime))
	}

	// Locked tasks are not handed out again
	req, err = FetchAndLock(s.Server.URL, "w2", 10, false)
	s.Require().NoError(err)
	tasks, err = req.AddTopic("t1", 1000).AddTopic("t2", 1000).Send(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("c", tasks[0].ID)

	// ...until the lock expires
	s.Clock.Add(2 * time.Second)
	req, err = FetchAndLock(s.Server.URL, "w2", 10, false)
	s.Require().NoError(err)
	tasks, err = req.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)
	s.Len(tasks, 2)
}

func (s *Suite) TestFetchAndLockVariables() {
	s.Engine.AddExternalTask(restdata.ExternalTask{
		ID:        "a",
		TopicName: "t1",
		Variables: map[string]restdata.Variable{
			"amount": {Value: 42, Type: "Integer"},
			"name":   {Value: "x", Type: "String"},
		},
	})
	req, err := FetchAndLock(s.Server.URL, "w1", 1, true)
	s.Require().NoError(err)
	tasks, err := req.AddTopic("t1", 1000, WithVariables("amount"), DeserializeValues()).Send(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Require().Contains(tasks[0].Variables, "amount")
	s.NotContains(tasks[0].Variables, "name")
	s.Equal("Integer", tasks[0].Variables["amount"].Type)
	s.EqualValues(42, tasks[0].Variables["amount"].Value)

	s.JSONEq(`{
		"workerId": "w1",
		"maxTasks": 1,
		"usePriority": true,
		"topics": [{
			"topicName": "t1",
			"lockDuration": 1000,
			"deserializeValues": true,
			"variables": ["amount"]
		}]
	}`, s.lastBody())
}

func (s *Suite) TestComplete() {
	s.addTask("a", "t1")
	fetch, err := FetchAndLock(s.Server.URL, "w1", 1, false)
	s.Require().NoError(err)
	_, err = fetch.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)

	req, err := Complete(s.Server.URL, "a", "w1")
	s.Require().NoError(err)
	err = req.AddVariable("result", restdata.Variable{Value: "ok", Type: "String"}).
		AddLocalVariable("scratch", restdata.Variable{Value: true}).
		Send(s.ctx)
	s.Require().NoError(err)

	s.JSONEq(`{
		"workerId": "w1",
		"variables": {"result": {"value": "ok", "type": "String"}},
		"localVariables": {"scratch": {"value": true}}
	}`, s.lastBody())

	completions := s.Engine.Completions()
	s.Require().Len(completions, 1)
	s.Equal("a", completions[0].TaskID)
	s.Equal("ok", completions[0].Variables["result"].Value)
	_, exists := s.Engine.ExternalTask("a")
	s.False(exists)
}

func (s *Suite) TestCompleteWithoutVariables() {
	s.addTask("a", "t1")
	fetch, err := FetchAndLock(s.Server.URL, "w1", 1, false)
	s.Require().NoError(err)
	_, err = fetch.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)

	req, err := Complete(s.Server.URL, "a", "w1")
	s.Require().NoError(err)
	s.Require().NoError(req.Send(s.ctx))
	s.JSONEq(`{"workerId":"w1","variables":{},"localVariables":{}}`, s.lastBody())
}

func (s *Suite) TestCompleteWrongWorker() {
	s.addTask("a", "t1")
	fetch, err := FetchAndLock(s.Server.URL, "w1", 1, false)
	s.Require().NoError(err)
	_, err = fetch.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)

	req, err := Complete(s.Server.URL, "a", "w2")
	s.Require().NoError(err)
	err = req.Send(s.ctx)
	var noSuccess *restclient.NoSuccessError
	if s.True(errors.As(err, &noSuccess)) {
		s.Equal("BadUserRequestException", noSuccess.Type)
	}
	s.Empty(s.Engine.Completions())
}

func (s *Suite) TestHandleBPMNError() {
	s.addTask("a", "t1")
	fetch, err := FetchAndLock(s.Server.URL, "w1", 1, false)
	s.Require().NoError(err)
	_, err = fetch.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)

	req, err := HandleBPMNError(s.Server.URL, "a", "w1", "E42", "")
	s.Require().NoError(err)
	s.Equal(s.Server.URL+"/external-task/a/bpmnError", req.URL())
	err = req.AddVariable("why", restdata.Variable{Value: "because"}).Send(s.ctx)
	s.Require().NoError(err)
	s.JSONEq(`{"workerId":"w1","errorCode":"E42","variables":{"why":{"value":"because"}}}`, s.lastBody())

	errs := s.Engine.BPMNErrors()
	s.Require().Len(errs, 1)
	s.Equal("E42", errs[0].ErrorCode)
}

func (s *Suite) TestHandleFailure() {
	s.addTask("a", "t1")
	fetch, err := FetchAndLock(s.Server.URL, "w1", 1, false)
	s.Require().NoError(err)
	_, err = fetch.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)

	req, err := HandleFailure(s.Server.URL, "a", "w1", "it broke", "stack trace", 2, 5000)
	s.Require().NoError(err)
	s.Require().NoError(req.Send(s.ctx))
	s.JSONEq(`{
		"workerId": "w1",
		"errorMessage": "it broke",
		"errorDetails": "stack trace",
		"retries": 2,
		"retryTimeout": 5000
	}`, s.lastBody())

	task, ok := s.Engine.ExternalTask("a")
	s.Require().True(ok)
	if s.NotNil(task.Retries) {
		s.Equal(2, *task.Retries)
	}
	s.Equal("it broke", task.ErrorMessage)
}

func (s *Suite) TestHandleFailureNegativeRetries() {
	before := len(s.Engine.Requests())
	_, err := HandleFailure(s.Server.URL, "a", "w1", "msg", "details", -1, 0)
	s.True(errors.Is(err, param.ErrInvalidValue))
	var invalid *param.InvalidValueError
	if s.True(errors.As(err, &invalid)) {
		s.Equal("retries", invalid.Name)
	}

	_, err = HandleFailure(s.Server.URL, "a", "w1", "msg", "details", 0, -1)
	s.True(errors.Is(err, param.ErrInvalidValue))
	s.Len(s.Engine.Requests(), before)
}

func (s *Suite) TestUnlockAndExtend() {
	s.addTask("a", "t1")
	fetch, err := FetchAndLock(s.Server.URL, "w1", 1, false)
	s.Require().NoError(err)
	_, err = fetch.AddTopic("t1", 1000).Send(s.ctx)
	s.Require().NoError(err)

	extend, err := ExtendLock(s.Server.URL, "a", "w1", 60000)
	s.Require().NoError(err)
	s.Require().NoError(extend.Send(s.ctx))
	s.JSONEq(`{"workerId":"w1","newDuration":60000}`, s.lastBody())
	task, _ := s.Engine.ExternalTask("a")
	if s.NotNil(task.LockExpirationTime) {
		s.True(s.Clock.Now().Add(time.Minute).Equal(*task.LockExpirationTime))
	}

	unlock, err := Unlock(s.Server.URL, "a")
	s.Require().NoError(err)
	s.Equal(s.Server.URL+"/external-task/a/unlock", unlock.URL())
	s.Require().NoError(unlock.Send(s.ctx))
	task, _ = s.Engine.ExternalTask("a")
	s.Nil(task.LockExpirationTime)
	s.Equal("", task.WorkerID)

	// Extending an unlocked task fails
	extend, err = ExtendLock(s.Server.URL, "a", "w1", 1000)
	s.Require().NoError(err)
	s.True(errors.Is(extend.Send(s.ctx), restclient.ErrNoSuccess))
}

func (s *Suite) TestGetListAndCount() {
	s.addTask("a", "t1")
	s.addTask("b", "t1")
	s.addTask("c", "t2")

	q := ListQuery{TopicName: "t1", SortBy: SortByID, Descending: true}
	list, err := GetList(s.Server.URL, q)
	s.Require().NoError(err)
	tasks, err := list.Send(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal("b", tasks[0].ID)
	s.Equal("a", tasks[1].ID)

	count, err := Count(s.Server.URL, q)
	s.Require().NoError(err)
	s.Equal(s.Server.URL+"/external-task/count", count.URL())
	n, err := count.Send(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	list, err = GetList(s.Server.URL, ListQuery{MaxResults: intPtr(1), FirstResult: intPtr(1)})
	s.Require().NoError(err)
	tasks, err = list.Send(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("b", tasks[0].ID)
}

func TestListQueryParameters(t *testing.T) {
	after := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	req, err := GetList(engineURL, ListQuery{
		ID:                  "anId",
		Locked:              true,
		NotLocked:           false,
		ActivityIDIn:        []string{"a1", "a2"},
		LockExpirationAfter: after,
		SortBy:              SortByTaskPriority,
	})
	require.NoError(t, err)
	assert.Equal(t, engineURL+"/external-task", req.URL())

	query := req.QueryParameters()
	get := func(name string) interface{} {
		value, _ := query.Get(name)
		return value
	}
	assert.Equal(t, []string{
		"externalTaskId", "locked", "lockExpirationAfter",
		"activityIdIn", "sortBy", "sortOrder",
	}, query.Names())
	assert.Equal(t, true, get("locked"))
	assert.Equal(t, "taskPriority", get("sortBy"))
	assert.Equal(t, "asc", get("sortOrder"))
	assert.Equal(t, after, get("lockExpirationAfter"))
	assert.Empty(t, req.BodyParameters())
}

func TestListQueryFlags(t *testing.T) {
	req, err := GetList(engineURL, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, req.QueryParameters())

	req, err = GetList(engineURL, ListQuery{Suspended: true, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"suspended"}, req.QueryParameters().Names())
}

func TestListQueryBadSortKey(t *testing.T) {
	_, err := GetList(engineURL, ListQuery{SortBy: SortKey(99)})
	assert.True(t, errors.Is(err, param.ErrInvalidValue))
}

func TestCountDropsPaging(t *testing.T) {
	first := 3
	req, err := Count(engineURL, ListQuery{
		TopicName:   "invoice",
		SortBy:      SortByID,
		Descending:  true,
		FirstResult: &first,
		MaxResults:  &first,
	})
	require.NoError(t, err)
	assert.Equal(t, engineURL+"/external-task/count", req.URL())
	assert.Equal(t, []string{"topicName"}, req.QueryParameters().Names())
}

func TestGetRequiresID(t *testing.T) {
	_, err := Get(engineURL, "")
	assert.True(t, errors.Is(err, param.ErrInvalidValue))
}

func TestFetchAndLockNegativeLock(t *testing.T) {
	req, err := FetchAndLock(engineURL, "w1", 5, false)
	require.NoError(t, err)
	req.AddTopic("t1", -1).AddTopic("t2", 1000)
	assert.Equal(t, []string{"t2"}, req.Topics())
	_, err = req.Send(context.Background())
	assert.True(t, errors.Is(err, param.ErrInvalidValue))
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(enginetest.New())
	url := server.URL
	server.Close()

	req, err := Get(url, "task1")
	require.NoError(t, err)
	_, err = req.Send(context.Background())
	assert.True(t, errors.Is(err, restclient.ErrClient))
}
