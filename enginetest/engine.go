// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package enginetest provides an in-process, in-memory fake of the
// Camunda engine REST API.  There is no persistence and no process
// execution: tests seed the engine with external tasks, history
// variables, filters, and process instances, point a client at it,
// and inspect what the client did.
//
// The entire engine is behind a single lock, held while each request
// is handled.  This is tuned for correctness and simple test
// assertions, not performance.
//
//     engine := enginetest.New()
//     server := httptest.NewServer(engine)
//     defer server.Close()
//     engine.AddExternalTask(restdata.ExternalTask{ID: "t1", TopicName: "invoice"})
//     req, _ := externaltask.FetchAndLock(server.URL, "w1", 1, false)
//     tasks, err := req.AddTopic("invoice", 1000).Send(ctx)
package enginetest

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-camunda/restdata"
	"github.com/gorilla/mux"
)

// Request is one HTTP request the engine received.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Completion records a successful Complete call.
type Completion struct {
	TaskID         string
	WorkerID       string
	Variables      map[string]restdata.Variable
	LocalVariables map[string]restdata.Variable
}

// BPMNError records a HandleBPMNError call.
type BPMNError struct {
	TaskID       string
	WorkerID     string
	ErrorCode    string
	ErrorMessage string
	Variables    map[string]restdata.Variable
}

// Failure records a HandleFailure call.
type Failure struct {
	TaskID       string
	WorkerID     string
	ErrorMessage string
	ErrorDetails string
	Retries      int
	RetryTimeout int64
}

// fault is an injected error response.
type fault struct {
	status int
	body   string
}

// Engine is a fake Camunda engine.  It implements http.Handler; serve
// it with net/http/httptest.
type Engine struct {
	// Clock is the engine's time source, used for task locks.
	Clock clock.Clock

	sem         sync.Mutex
	router      *mux.Router
	tasks       map[string]*restdata.ExternalTask
	completions []Completion
	bpmnErrors  []BPMNError
	failures    []Failure
	history     []restdata.HistoryVariableInstance
	filters     map[string]restdata.Filter
	instances   map[string]restdata.ProcessInstance
	requests    []Request
	faults      []fault
}

// New creates a new empty engine using wall-clock time.
func New() *Engine {
	return NewWithClock(clock.New())
}

// NewWithClock creates a new empty engine with an alternate time
// source, usually a clock.Mock.
func NewWithClock(clk clock.Clock) *Engine {
	e := &Engine{
		Clock:     clk,
		tasks:     make(map[string]*restdata.ExternalTask),
		filters:   make(map[string]restdata.Filter),
		instances: make(map[string]restdata.ProcessInstance),
	}
	e.router = mux.NewRouter()
	e.PopulateRouter(e.router)
	return e
}

// PopulateRouter adds the engine routes to an existing router.  This
// can be used to place the engine under a path prefix:
//
//     r := mux.NewRouter()
//     engine.PopulateRouter(r.PathPrefix("/engine-rest").Subrouter())
//
// Requests routed this way are not recorded and do not see injected
// faults.
func (e *Engine) PopulateRouter(r *mux.Router) {
	e.populateExternalTask(r)
	e.populateHistory(r)
	e.populateFilter(r)
	e.populateProcessInstance(r)
}

func (e *Engine) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	if e.record(resp, req) {
		return
	}
	e.router.ServeHTTP(resp, req)
}

// record saves a copy of req.  If a fault is pending, it writes the
// fault response and returns true.
func (e *Engine) record(resp http.ResponseWriter, req *http.Request) bool {
	e.sem.Lock()
	defer e.sem.Unlock()

	var body []byte
	if req.Body != nil {
		body, _ = ioutil.ReadAll(req.Body)
		req.Body = ioutil.NopCloser(bytes.NewReader(body))
	}
	e.requests = append(e.requests, Request{
		Method: req.Method,
		Path:   req.URL.EscapedPath(),
		Query:  req.URL.Query(),
		Body:   body,
	})

	if len(e.faults) == 0 {
		return false
	}
	f := e.faults[0]
	e.faults = e.faults[1:]
	resp.Header().Set("Content-Type", restdata.JSONMediaType)
	resp.WriteHeader(f.status)
	_, _ = resp.Write([]byte(f.body))
	return true
}

// Fail makes the next count requests fail with status and body,
// regardless of what they ask for.
func (e *Engine) Fail(count, status int, body string) {
	e.sem.Lock()
	defer e.sem.Unlock()
	for i := 0; i < count; i++ {
		e.faults = append(e.faults, fault{status: status, body: body})
	}
}

// Requests returns every request received so far, oldest first.
func (e *Engine) Requests() []Request {
	e.sem.Lock()
	defer e.sem.Unlock()
	return append([]Request(nil), e.requests...)
}

// LastRequest returns the most recent request, if any.
func (e *Engine) LastRequest() (Request, bool) {
	e.sem.Lock()
	defer e.sem.Unlock()
	if len(e.requests) == 0 {
		return Request{}, false
	}
	return e.requests[len(e.requests)-1], true
}

// AddExternalTask adds or replaces an external task.  A nil Retries
// means the task can always be fetched.
func (e *Engine) AddExternalTask(task restdata.ExternalTask) {
	e.sem.Lock()
	defer e.sem.Unlock()
	e.tasks[task.ID] = &task
}

// ExternalTask returns the current state of an external task.
// Completed tasks and tasks with BPMN errors no longer exist.
func (e *Engine) ExternalTask(id string) (restdata.ExternalTask, bool) {
	e.sem.Lock()
	defer e.sem.Unlock()
	task, ok := e.tasks[id]
	if !ok {
		return restdata.ExternalTask{}, false
	}
	return *task, true
}

// Completions returns every successful completion, in order.
func (e *Engine) Completions() []Completion {
	e.sem.Lock()
	defer e.sem.Unlock()
	return append([]Completion(nil), e.completions...)
}

// BPMNErrors returns every reported BPMN error, in order.
func (e *Engine) BPMNErrors() []BPMNError {
	e.sem.Lock()
	defer e.sem.Unlock()
	return append([]BPMNError(nil), e.bpmnErrors...)
}

// Failures returns every reported failure, in order.
func (e *Engine) Failures() []Failure {
	e.sem.Lock()
	defer e.sem.Unlock()
	return append([]Failure(nil), e.failures...)
}

// AddHistoryVariable adds a historic variable instance.
func (e *Engine) AddHistoryVariable(v restdata.HistoryVariableInstance) {
	e.sem.Lock()
	defer e.sem.Unlock()
	e.history = append(e.history, v)
}

// AddFilter adds or replaces a filter.
func (e *Engine) AddFilter(f restdata.Filter) {
	e.sem.Lock()
	defer e.sem.Unlock()
	e.filters[f.ID] = f
}

// Filter returns a filter, if it exists.
func (e *Engine) Filter(id string) (restdata.Filter, bool) {
	e.sem.Lock()
	defer e.sem.Unlock()
	f, ok := e.filters[id]
	return f, ok
}

// AddProcessInstance adds or replaces a process instance.
func (e *Engine) AddProcessInstance(p restdata.ProcessInstance) {
	e.sem.Lock()
	defer e.sem.Unlock()
	e.instances[p.ID] = p
}

// ProcessInstance returns a process instance, if it exists.
func (e *Engine) ProcessInstance(id string) (restdata.ProcessInstance, bool) {
	e.sem.Lock()
	defer e.sem.Unlock()
	p, ok := e.instances[id]
	return p, ok
}

// sortedTasks returns all tasks ordered by ID.  Callers hold the lock.
func (e *Engine) sortedTasks() []*restdata.ExternalTask {
	tasks := make([]*restdata.ExternalTask, 0, len(e.tasks))
	for _, task := range e.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}
