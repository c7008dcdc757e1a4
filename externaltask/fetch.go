// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package externaltask

import (
	"context"

	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
)

var (
	workerIDParam = &param.Descriptor{
		Name:     "workerId",
		Kind:     param.Body,
		Validate: param.Required,
	}
	maxTasksParam = &param.Descriptor{
		Name:     "maxTasks",
		Kind:     param.Body,
		Validate: param.NonNegative,
	}
	usePriorityParam = &param.Descriptor{Name: "usePriority", Kind: param.Body}
	topicsParam      = &param.Descriptor{Name: "topics", Kind: param.Body}

	fetchSchema = param.NewSchema(workerIDParam, maxTasksParam, usePriorityParam, topicsParam)
)

// topic is one entry of a fetch-and-lock request's topic list.
type topic map[string]interface{}

// TopicOption changes how tasks of one topic are fetched.
type TopicOption func(topic)

// WithVariables limits the process variables returned with each task
// to names.  Without this option every variable is returned.  Passing
// no names returns no variables.
func WithVariables(names ...string) TopicOption {
	return func(t topic) {
		t["variables"] = append([]string{}, names...)
	}
}

// DeserializeValues asks the engine to deserialize serialized
// variable values, such as Java objects, before returning them.
func DeserializeValues() TopicOption {
	return func(t topic) {
		t["deserializeValues"] = true
	}
}

// LocalVariables returns only variables local to the task's
// execution.
func LocalVariables() TopicOption {
	return func(t topic) {
		t["localVariables"] = true
	}
}

// WithBusinessKey fetches only tasks of process instances with the
// given business key.
func WithBusinessKey(key string) TopicOption {
	return func(t topic) {
		t["businessKey"] = key
	}
}

// FetchAndLockRequest fetches external tasks and locks them for a
// worker.  Only tasks of topics added with AddTopic are fetched.
type FetchAndLockRequest struct {
	*restclient.Request
	topics []topic
	err    error
}

// FetchAndLock creates a request fetching up to maxTasks tasks for
// workerID.  If usePriority is true, higher-priority tasks are
// fetched first.
func FetchAndLock(url, workerID string, maxTasks int, usePriority bool) (*FetchAndLockRequest, error) {
	r, err := restclient.Build(url, Suffix+"/fetchAndLock", fetchSchema, func(b *param.Binder) {
		b.Bind(workerIDParam, workerID).
			Bind(maxTasksParam, maxTasks).
			Bind(usePriorityParam, usePriority).
			Bind(topicsParam, []topic{})
	})
	if err != nil {
		return nil, err
	}
	return &FetchAndLockRequest{Request: r, topics: []topic{}}, nil
}

// AddTopic adds a topic to fetch tasks for, locking fetched tasks for
// lockDuration milliseconds.  A negative lock duration makes Send
// fail without contacting the engine.
func (r *FetchAndLockRequest) AddTopic(name string, lockDuration int64, opts ...TopicOption) *FetchAndLockRequest {
	if err := param.NonNegative(lockDuration); err != nil {
		if r.err == nil {
			r.err = &param.InvalidValueError{Name: "lockDuration", Value: lockDuration, Err: err}
		}
		return r
	}
	t := topic{
		"topicName":         name,
		"lockDuration":      lockDuration,
		"deserializeValues": false,
	}
	for _, opt := range opts {
		opt(t)
	}
	r.topics = append(r.topics, t)
	r.Replace(topicsParam, r.topics)
	return r
}

// Topics returns the names of the topics added so far.
func (r *FetchAndLockRequest) Topics() []string {
	names := make([]string, len(r.topics))
	for i, t := range r.topics {
		names[i], _ = t["topicName"].(string)
	}
	return names
}

// Err returns the first error recorded by AddTopic, if any.
func (r *FetchAndLockRequest) Err() error {
	return r.err
}

// Send performs the request, returning the locked tasks.  The result
// is empty, not nil, if no tasks were available.
func (r *FetchAndLockRequest) Send(ctx context.Context) ([]restdata.ExternalTask, error) {
	if r.err != nil {
		return nil, r.err
	}
	return restclient.PostList(ctx, r.Request, restdata.LoadExternalTask)
}
