// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func externalTaskJSON() map[string]interface{} {
	return map[string]interface{}{
		"activityId":           "anActivityId",
		"activityInstanceId":   "anActivityInstanceId",
		"errorMessage":         "anErrorMessage",
		"errorDetails":         "someErrorDetails",
		"executionId":          "anExecutionId",
		"id":                   "anId",
		"lockExpirationTime":   "2015-10-06T16:34:42.000+0200",
		"processDefinitionId":  "aProcessDefinitionId",
		"processDefinitionKey": "aProcessDefinitionKey",
		"processInstanceId":    "aProcessInstanceId",
		"tenantId":             "aTenantId",
		"retries":              3,
		"workerId":             "aWorkerId",
		"priority":             10,
		"topicName":            "aTopicName",
	}
}

func TestLoadExternalTask(t *testing.T) {
	task, err := LoadExternalTask(externalTaskJSON())
	require.NoError(t, err)

	assert.Equal(t, "anActivityId", task.ActivityID)
	assert.Equal(t, "anActivityInstanceId", task.ActivityInstanceID)
	assert.Equal(t, "anErrorMessage", task.ErrorMessage)
	assert.Equal(t, "someErrorDetails", task.ErrorDetails)
	assert.Equal(t, "anExecutionId", task.ExecutionID)
	assert.Equal(t, "anId", task.ID)
	assert.Equal(t, "aProcessDefinitionId", task.ProcessDefinitionID)
	assert.Equal(t, "aProcessDefinitionKey", task.ProcessDefinitionKey)
	assert.Equal(t, "aProcessInstanceId", task.ProcessInstanceID)
	assert.Equal(t, "aTenantId", task.TenantID)
	require.NotNil(t, task.Retries)
	assert.Equal(t, 3, *task.Retries)
	assert.Equal(t, "aWorkerId", task.WorkerID)
	assert.Equal(t, int64(10), task.Priority)
	assert.Equal(t, "aTopicName", task.TopicName)

	require.NotNil(t, task.LockExpirationTime)
	expected := time.Date(2015, 10, 6, 14, 34, 42, 0, time.UTC)
	assert.True(t, expected.Equal(*task.LockExpirationTime))

	assert.Nil(t, task.Suspended)
	assert.Nil(t, task.BusinessKey)
	assert.Nil(t, task.Variables)
}

func TestLoadExternalTaskOptional(t *testing.T) {
	data := externalTaskJSON()
	data["suspended"] = true
	data["businessKey"] = "aBusinessKey"
	data["variables"] = map[string]interface{}{
		"aVar": map[string]interface{}{
			"value":     "aValue",
			"type":      "String",
			"valueInfo": map[string]interface{}{},
		},
	}

	task, err := LoadExternalTask(data)
	require.NoError(t, err)
	require.NotNil(t, task.Suspended)
	assert.True(t, *task.Suspended)
	require.NotNil(t, task.BusinessKey)
	assert.Equal(t, "aBusinessKey", *task.BusinessKey)
	assert.Equal(t, map[string]Variable{
		"aVar": {Value: "aValue", Type: "String", ValueInfo: map[string]interface{}{}},
	}, task.Variables)
}

func TestLoadExternalTaskNulls(t *testing.T) {
	data := externalTaskJSON()
	data["retries"] = nil
	data["lockExpirationTime"] = nil
	data["errorMessage"] = nil

	task, err := LoadExternalTask(data)
	require.NoError(t, err)
	assert.Nil(t, task.Retries)
	assert.Nil(t, task.LockExpirationTime)
	assert.Equal(t, "", task.ErrorMessage)
}

func TestLoadExternalTaskMissing(t *testing.T) {
	for _, key := range externalTaskRequired {
		data := externalTaskJSON()
		delete(data, key)
		_, err := LoadExternalTask(data)
		require.Error(t, err, key)
		assert.True(t, errors.Is(err, ErrMissingField), key)
		var missing *MissingFieldError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, key, missing.Field)
	}
}

func TestLoadExternalTaskBadVariable(t *testing.T) {
	data := externalTaskJSON()
	data["variables"] = map[string]interface{}{
		"aVar": map[string]interface{}{"value": 1, "type": "Integer"},
	}
	_, err := LoadExternalTask(data)
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Variable", missing.Record)
	assert.Equal(t, "valueInfo", missing.Field)
}

func TestLoadIsPure(t *testing.T) {
	data := externalTaskJSON()
	first, err := LoadExternalTask(data)
	require.NoError(t, err)
	second, err := LoadExternalTask(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, externalTaskJSON(), data)
}

func TestLoadHistoryVariableInstance(t *testing.T) {
	data := map[string]interface{}{
		"id":                    "anId",
		"name":                  "aName",
		"type":                  "String",
		"value":                 "aValue",
		"valueInfo":             map[string]interface{}{},
		"processDefinitionKey":  "aProcDefKey",
		"processDefinitionId":   "aProcDefId",
		"processInstanceId":     "aProcInstId",
		"executionId":           "anExecId",
		"activityInstanceId":    "anActInstId",
		"caseDefinitionKey":     nil,
		"caseDefinitionId":      nil,
		"caseInstanceId":        nil,
		"caseExecutionId":       nil,
		"taskId":                nil,
		"tenantId":              nil,
		"errorMessage":          nil,
		"state":                 "CREATED",
		"createTime":            "2017-02-10T14:33:19.000+0200",
		"removalTime":           nil,
		"rootProcessInstanceId": "aRootProcInstId",
	}
	instance, err := LoadHistoryVariableInstance(data)
	require.NoError(t, err)
	assert.Equal(t, "anId", instance.ID)
	assert.Equal(t, "aValue", instance.Value)
	assert.Equal(t, "CREATED", instance.State)
	assert.Equal(t, "", instance.TenantID)
	require.NotNil(t, instance.CreateTime)
	assert.Equal(t, 2017, instance.CreateTime.Year())
	assert.Nil(t, instance.RemovalTime)

	delete(data, "rootProcessInstanceId")
	_, err = LoadHistoryVariableInstance(data)
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestLoadFilter(t *testing.T) {
	data := map[string]interface{}{
		"id":           "anId",
		"resourceType": "Task",
		"name":         "aName",
		"owner":        "anOwner",
		"query":        map[string]interface{}{"assignee": "demo"},
		"properties":   map[string]interface{}{"color": "#3e4d2f"},
	}
	filter, err := LoadFilter(data)
	require.NoError(t, err)
	assert.Equal(t, "Task", filter.ResourceType)
	assert.Equal(t, "demo", filter.Query["assignee"])
	assert.Nil(t, filter.ItemCount)

	data["itemCount"] = 13
	filter, err = LoadFilter(data)
	require.NoError(t, err)
	require.NotNil(t, filter.ItemCount)
	assert.Equal(t, int64(13), *filter.ItemCount)
}

func TestLoadCount(t *testing.T) {
	count, err := LoadCount(map[string]interface{}{"count": uint64(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count.Count)

	_, err = LoadCount(map[string]interface{}{})
	assert.True(t, errors.Is(err, ErrMissingField))
	_, err = LoadCount(nil)
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestDecode(t *testing.T) {
	var out []map[string]interface{}
	err := Decode("application/json; charset=utf-8", strings.NewReader(`[{"id":"a","nested":{"k":"v"}}]`), &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0]["id"])
	assert.Equal(t, map[string]interface{}{"k": "v"}, out[0]["nested"])

	var data map[string]interface{}
	assert.NoError(t, Decode("", strings.NewReader(`{"count":3}`), &data))

	err = Decode("text/html", strings.NewReader("<html/>"), &data)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "text/html"}, err)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, map[string]interface{}{
		"variables": map[string]Variable{"v": {Value: "x"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"variables":{"v":{"value":"x"}}}`, buf.String())
}

func TestTimeRoundTrip(t *testing.T) {
	when := time.Date(2020, 1, 2, 3, 4, 5, 6000000, time.FixedZone("", 2*60*60))
	s := FormatTime(when)
	assert.Equal(t, "2020-01-02T03:04:05.006+0200", s)
	parsed, err := ParseTime(s)
	require.NoError(t, err)
	assert.True(t, when.Equal(parsed))
}
