// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package enginetest

import (
	"sort"
	"time"

	"github.com/diffeo/go-camunda/restdata"
	"github.com/gorilla/mux"
)

func (e *Engine) populateExternalTask(r *mux.Router) {
	r.Path("/external-task").Handler(&resourceHandler{
		Engine: e,
		Get:    e.externalTasksGet,
	})
	r.Path("/external-task/count").Handler(&resourceHandler{
		Engine: e,
		Get:    e.externalTasksCount,
	})
	r.Path("/external-task/fetchAndLock").Handler(&resourceHandler{
		Engine: e,
		Post:   e.fetchAndLock,
	})
	r.Path("/external-task/{id}").Handler(&resourceHandler{
		Engine: e,
		Get:    e.externalTaskGet,
	})
	r.Path("/external-task/{id}/complete").Handler(&resourceHandler{
		Engine: e,
		Post:   e.externalTaskComplete,
	})
	r.Path("/external-task/{id}/bpmnError").Handler(&resourceHandler{
		Engine: e,
		Post:   e.externalTaskBPMNError,
	})
	r.Path("/external-task/{id}/failure").Handler(&resourceHandler{
		Engine: e,
		Post:   e.externalTaskFailure,
	})
	r.Path("/external-task/{id}/unlock").Handler(&resourceHandler{
		Engine: e,
		Post:   e.externalTaskUnlock,
	})
	r.Path("/external-task/{id}/extendLock").Handler(&resourceHandler{
		Engine: e,
		Post:   e.externalTaskExtendLock,
	})
}

// taskDocument renders a task the way the engine's query endpoints
// do, without variables.
func taskDocument(task *restdata.ExternalTask) map[string]interface{} {
	doc := map[string]interface{}{
		"activityId":           task.ActivityID,
		"activityInstanceId":   task.ActivityInstanceID,
		"errorMessage":         nilIfEmpty(task.ErrorMessage),
		"errorDetails":         nilIfEmpty(task.ErrorDetails),
		"executionId":          task.ExecutionID,
		"id":                   task.ID,
		"lockExpirationTime":   formatTime(task.LockExpirationTime),
		"processDefinitionId":  task.ProcessDefinitionID,
		"processDefinitionKey": task.ProcessDefinitionKey,
		"processInstanceId":    task.ProcessInstanceID,
		"tenantId":             nilIfEmpty(task.TenantID),
		"retries":              nil,
		"workerId":             nilIfEmpty(task.WorkerID),
		"priority":             task.Priority,
		"topicName":            task.TopicName,
	}
	if task.Retries != nil {
		doc["retries"] = *task.Retries
	}
	if task.Suspended != nil {
		doc["suspended"] = *task.Suspended
	}
	return doc
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// locked reports whether a task is locked at time now.
func locked(task *restdata.ExternalTask, now time.Time) bool {
	return task.LockExpirationTime != nil && task.LockExpirationTime.After(now)
}

func suspended(task *restdata.ExternalTask) bool {
	return task.Suspended != nil && *task.Suspended
}

func hasRetries(task *restdata.ExternalTask) bool {
	return task.Retries == nil || *task.Retries > 0
}

type externalTaskQuery struct {
	ExternalTaskID      string `schema:"externalTaskId"`
	TopicName           string `schema:"topicName"`
	WorkerID            string `schema:"workerId"`
	Locked              bool   `schema:"locked"`
	NotLocked           bool   `schema:"notLocked"`
	WithRetriesLeft     bool   `schema:"withRetriesLeft"`
	NoRetriesLeft       bool   `schema:"noRetriesLeft"`
	ActivityID          string `schema:"activityId"`
	ActivityIDIn        string `schema:"activityIdIn"`
	ExecutionID         string `schema:"executionId"`
	ProcessInstanceID   string `schema:"processInstanceId"`
	ProcessDefinitionID string `schema:"processDefinitionId"`
	TenantIDIn          string `schema:"tenantIdIn"`
	Active              bool   `schema:"active"`
	Suspended           bool   `schema:"suspended"`
	PriorityHigher      *int64 `schema:"priorityHigherThanOrEquals"`
	PriorityLower       *int64 `schema:"priorityLowerThanOrEquals"`
	SortBy              string `schema:"sortBy"`
	SortOrder           string `schema:"sortOrder"`
	FirstResult         int    `schema:"firstResult"`
	MaxResults          *int   `schema:"maxResults"`
}

func (q *externalTaskQuery) matches(task *restdata.ExternalTask, now time.Time) bool {
	switch {
	case q.ExternalTaskID != "" && task.ID != q.ExternalTaskID,
		q.TopicName != "" && task.TopicName != q.TopicName,
		q.WorkerID != "" && task.WorkerID != q.WorkerID,
		q.Locked && !locked(task, now),
		q.NotLocked && locked(task, now),
		q.WithRetriesLeft && !hasRetries(task),
		q.NoRetriesLeft && hasRetries(task),
		q.ActivityID != "" && task.ActivityID != q.ActivityID,
		q.ActivityIDIn != "" && !contains(splitList(q.ActivityIDIn), task.ActivityID),
		q.ExecutionID != "" && task.ExecutionID != q.ExecutionID,
		q.ProcessInstanceID != "" && task.ProcessInstanceID != q.ProcessInstanceID,
		q.ProcessDefinitionID != "" && task.ProcessDefinitionID != q.ProcessDefinitionID,
		q.TenantIDIn != "" && !contains(splitList(q.TenantIDIn), task.TenantID),
		q.Active && suspended(task),
		q.Suspended && !suspended(task),
		q.PriorityHigher != nil && task.Priority < *q.PriorityHigher,
		q.PriorityLower != nil && task.Priority > *q.PriorityLower:
		return false
	}
	return true
}

var externalTaskOrdering = ordering[*restdata.ExternalTask]{
	"id": func(a, b *restdata.ExternalTask) bool { return a.ID < b.ID },
	"lockExpirationTime": func(a, b *restdata.ExternalTask) bool {
		if a.LockExpirationTime == nil || b.LockExpirationTime == nil {
			return a.LockExpirationTime == nil && b.LockExpirationTime != nil
		}
		return a.LockExpirationTime.Before(*b.LockExpirationTime)
	},
	"processInstanceId":   func(a, b *restdata.ExternalTask) bool { return a.ProcessInstanceID < b.ProcessInstanceID },
	"processDefinitionId": func(a, b *restdata.ExternalTask) bool { return a.ProcessDefinitionID < b.ProcessDefinitionID },
	"tenantId":            func(a, b *restdata.ExternalTask) bool { return a.TenantID < b.TenantID },
	"taskPriority":        func(a, b *restdata.ExternalTask) bool { return a.Priority < b.Priority },
}

// queryTasks returns the tasks matching the query string, sorted but
// not paged.
func (e *Engine) queryTasks(c *call) ([]*restdata.ExternalTask, *externalTaskQuery, error) {
	var q externalTaskQuery
	if err := c.DecodeQuery(&q); err != nil {
		return nil, nil, err
	}
	now := e.Clock.Now()
	var result []*restdata.ExternalTask
	for _, task := range e.sortedTasks() {
		if q.matches(task, now) {
			result = append(result, task)
		}
	}
	if err := externalTaskOrdering.apply(result, q.SortBy, q.SortOrder); err != nil {
		return nil, nil, err
	}
	return result, &q, nil
}

func (e *Engine) externalTasksGet(c *call) (interface{}, error) {
	tasks, q, err := e.queryTasks(c)
	if err != nil {
		return nil, err
	}
	docs := []map[string]interface{}{}
	for _, task := range page(tasks, q.FirstResult, q.MaxResults) {
		docs = append(docs, taskDocument(task))
	}
	return docs, nil
}

func (e *Engine) externalTasksCount(c *call) (interface{}, error) {
	tasks, _, err := e.queryTasks(c)
	if err != nil {
		return nil, err
	}
	return restdata.Count{Count: int64(len(tasks))}, nil
}

func (e *Engine) externalTaskGet(c *call) (interface{}, error) {
	task, err := e.task(c)
	if err != nil {
		return nil, err
	}
	return taskDocument(task), nil
}

// task finds the task named in the URL.
func (e *Engine) task(c *call) (*restdata.ExternalTask, error) {
	id := c.Vars["id"]
	task, ok := e.tasks[id]
	if !ok {
		return nil, notFound("External task with id %s does not exist", id)
	}
	return task, nil
}

// lockedTask finds the task named in the URL and checks that it is
// locked by workerID.
func (e *Engine) lockedTask(c *call, workerID string) (*restdata.ExternalTask, error) {
	task, err := e.task(c)
	if err != nil {
		return nil, err
	}
	if task.WorkerID != workerID {
		return nil, badUserRequest("External Task %s cannot be completed by worker '%s'. It is locked by worker '%s'.",
			task.ID, workerID, task.WorkerID)
	}
	return task, nil
}

type fetchTopic struct {
	TopicName         string    `json:"topicName"`
	LockDuration      int64     `json:"lockDuration"`
	Variables         *[]string `json:"variables"`
	DeserializeValues bool      `json:"deserializeValues"`
	LocalVariables    bool      `json:"localVariables"`
	BusinessKey       string    `json:"businessKey"`
}

type fetchRequest struct {
	WorkerID    string       `json:"workerId"`
	MaxTasks    int          `json:"maxTasks"`
	UsePriority bool         `json:"usePriority"`
	Topics      []fetchTopic `json:"topics"`
}

func (e *Engine) fetchAndLock(c *call) (interface{}, error) {
	var in fetchRequest
	if err := c.DecodeBody(&in); err != nil {
		return nil, err
	}
	if in.WorkerID == "" {
		return nil, badRequest("workerId must not be null")
	}
	topics := make(map[string]fetchTopic)
	for _, topic := range in.Topics {
		topics[topic.TopicName] = topic
	}

	candidates := e.sortedTasks()
	if in.UsePriority {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Priority > candidates[j].Priority
		})
	}

	now := e.Clock.Now()
	docs := []map[string]interface{}{}
	for _, task := range candidates {
		if len(docs) >= in.MaxTasks {
			break
		}
		topic, wanted := topics[task.TopicName]
		if !wanted || locked(task, now) || suspended(task) || !hasRetries(task) {
			continue
		}
		if topic.BusinessKey != "" && (task.BusinessKey == nil || *task.BusinessKey != topic.BusinessKey) {
			continue
		}
		expiration := now.Add(time.Duration(topic.LockDuration) * time.Millisecond)
		task.WorkerID = in.WorkerID
		task.LockExpirationTime = &expiration

		doc := taskDocument(task)
		doc["businessKey"] = nil
		if task.BusinessKey != nil {
			doc["businessKey"] = *task.BusinessKey
		}
		doc["variables"] = variablesDocument(task.Variables, topic.Variables)
		docs = append(docs, doc)
	}
	return docs, nil
}

// variablesDocument renders the variables a fetch asked for.  A nil
// names list selects everything.
func variablesDocument(variables map[string]restdata.Variable, names *[]string) map[string]interface{} {
	doc := make(map[string]interface{})
	for name, v := range variables {
		if names != nil && !contains(*names, name) {
			continue
		}
		valueInfo := v.ValueInfo
		if valueInfo == nil {
			valueInfo = map[string]interface{}{}
		}
		doc[name] = map[string]interface{}{
			"type":      v.Type,
			"value":     v.Value,
			"valueInfo": valueInfo,
		}
	}
	return doc
}

type completeRequest struct {
	WorkerID       string                       `json:"workerId"`
	Variables      map[string]restdata.Variable `json:"variables"`
	LocalVariables map[string]restdata.Variable `json:"localVariables"`
}

func (e *Engine) externalTaskComplete(c *call) (interface{}, error) {
	var in completeRequest
	if err := c.DecodeBody(&in); err != nil {
		return nil, err
	}
	task, err := e.lockedTask(c, in.WorkerID)
	if err != nil {
		return nil, err
	}
	delete(e.tasks, task.ID)
	e.completions = append(e.completions, Completion{
		TaskID:         task.ID,
		WorkerID:       in.WorkerID,
		Variables:      in.Variables,
		LocalVariables: in.LocalVariables,
	})
	return nil, nil
}

type bpmnErrorRequest struct {
	WorkerID     string                       `json:"workerId"`
	ErrorCode    string                       `json:"errorCode"`
	ErrorMessage string                       `json:"errorMessage"`
	Variables    map[string]restdata.Variable `json:"variables"`
}

func (e *Engine) externalTaskBPMNError(c *call) (interface{}, error) {
	var in bpmnErrorRequest
	if err := c.DecodeBody(&in); err != nil {
		return nil, err
	}
	task, err := e.lockedTask(c, in.WorkerID)
	if err != nil {
		return nil, err
	}
	delete(e.tasks, task.ID)
	e.bpmnErrors = append(e.bpmnErrors, BPMNError{
		TaskID:       task.ID,
		WorkerID:     in.WorkerID,
		ErrorCode:    in.ErrorCode,
		ErrorMessage: in.ErrorMessage,
		Variables:    in.Variables,
	})
	return nil, nil
}

type failureRequest struct {
	WorkerID     string `json:"workerId"`
	ErrorMessage string `json:"errorMessage"`
	ErrorDetails string `json:"errorDetails"`
	Retries      int    `json:"retries"`
	RetryTimeout int64  `json:"retryTimeout"`
}

func (e *Engine) externalTaskFailure(c *call) (interface{}, error) {
	var in failureRequest
	if err := c.DecodeBody(&in); err != nil {
		return nil, err
	}
	task, err := e.lockedTask(c, in.WorkerID)
	if err != nil {
		return nil, err
	}
	retries := in.Retries
	task.Retries = &retries
	task.ErrorMessage = in.ErrorMessage
	task.ErrorDetails = in.ErrorDetails
	task.LockExpirationTime = nil
	if in.RetryTimeout > 0 {
		expiration := e.Clock.Now().Add(time.Duration(in.RetryTimeout) * time.Millisecond)
		task.LockExpirationTime = &expiration
	}
	e.failures = append(e.failures, Failure{
		TaskID:       task.ID,
		WorkerID:     in.WorkerID,
		ErrorMessage: in.ErrorMessage,
		ErrorDetails: in.ErrorDetails,
		Retries:      in.Retries,
		RetryTimeout: in.RetryTimeout,
	})
	return nil, nil
}

func (e *Engine) externalTaskUnlock(c *call) (interface{}, error) {
	task, err := e.task(c)
	if err != nil {
		return nil, err
	}
	task.WorkerID = ""
	task.LockExpirationTime = nil
	return nil, nil
}

type extendLockRequest struct {
	WorkerID    string `json:"workerId"`
	NewDuration int64  `json:"newDuration"`
}

func (e *Engine) externalTaskExtendLock(c *call) (interface{}, error) {
	var in extendLockRequest
	if err := c.DecodeBody(&in); err != nil {
		return nil, err
	}
	task, err := e.lockedTask(c, in.WorkerID)
	if err != nil {
		return nil, err
	}
	now := e.Clock.Now()
	if !locked(task, now) {
		return nil, badUserRequest("External task %s is not locked", task.ID)
	}
	expiration := now.Add(time.Duration(in.NewDuration) * time.Millisecond)
	task.LockExpirationTime = &expiration
	return nil, nil
}
