// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package worker provides a library framework for processes that
// execute Camunda external tasks.
//
// A Worker repeatedly fetches and locks tasks for the topics it has
// handlers for, runs each task through its handler, and reports the
// result back to the engine.  While a handler runs, the worker keeps
// extending the task's lock.
package worker

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/diffeo/go-camunda/externaltask"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// Handler runs a single external task.  A nil error completes the
// task, setting the returned variables on its process instance.
// Returning a *BPMNError raises a BPMN error in the process; any other
// error reports a failure.
//
// The context is canceled when the worker stops or the task's lock
// could not be extended.  The handler should stop working and return
// an error in that case.
type Handler func(ctx context.Context, task restdata.ExternalTask) (map[string]restdata.Variable, error)

// Topic holds per-topic fetch settings.
type Topic struct {
	// LockDuration is how long fetched tasks stay locked.  If
	// zero, Worker.LockDuration is used.
	LockDuration time.Duration

	// Options are passed to externaltask.FetchAndLockRequest.AddTopic.
	Options []externaltask.TopicOption
}

// Worker fetches external tasks from a Camunda engine and runs them.
type Worker struct {
	// URL is the engine REST API base URL, such as
	// "http://localhost:8080/engine-rest".  This field is
	// required.
	URL string

	// Handlers maps topic names to the functions that run their
	// tasks.  The worker only fetches topics that appear here.
	// There must be at least one handler.
	Handlers map[string]Handler

	// Topics optionally refines how each topic is fetched.
	Topics map[string]Topic

	// WorkerID provides the name of the worker as seen by the
	// engine.  If unset, a worker ID will be generated.
	WorkerID string

	// LockDuration is the default lock duration of fetched tasks.
	// If unset, defaults to 1 minute.
	LockDuration time.Duration

	// MaxTasks limits the number of tasks a single fetch returns.
	// If unset, uses 10.
	MaxTasks int

	// UsePriority asks the engine to hand out higher-priority
	// tasks first.
	UsePriority bool

	// Concurrency states how many fetches, and sets of tasks,
	// should run in parallel.  If unset, uses runtime.NumCPU().
	Concurrency int

	// PollInterval states how often the worker should try to get
	// more work if the previous fetch returned nothing.  If unset,
	// defaults to 1 second.
	PollInterval time.Duration

	// MaxBackOff caps the wait between fetches after the engine
	// could not be reached.  The wait starts at PollInterval and
	// grows exponentially.  If unset, defaults to 1 minute.
	MaxBackOff time.Duration

	// HeartbeatInterval states how often the worker checks for
	// running tasks whose locks are about to expire.  If unset,
	// defaults to 15 seconds.
	HeartbeatInterval time.Duration

	// Retries is the number of retries a task gets after its
	// first failure.  Later failures count down from the task's
	// current retries.  If unset, uses 3.
	Retries int

	// RetryTimeout is how long a failed task waits before it can
	// be fetched again.
	RetryTimeout time.Duration

	// Timeout bounds every request to the engine.  Zero means no
	// timeout beyond the worker's context.
	Timeout time.Duration

	// HTTPClient, if non-nil, is used for all requests.
	HTTPClient *http.Client

	// ErrorHandler is called when an error occurs in the worker
	// main loop or while reporting a task result.
	ErrorHandler func(error)

	// Clock defines a time source for the worker.  Only test code
	// should need to set this.  If unset, uses a time source
	// backed by real wall-clock time.
	Clock clock.Clock

	// Logger receives task progress.  If unset, uses the logrus
	// standard logger.
	Logger logrus.FieldLogger

	// Metrics receives task counts and fetch timings.  If unset,
	// a private unregistered set is used.
	Metrics *Metrics

	// children is the number of running or idle fetch loops, and
	// nextChild the ID of the next one to create.
	children  int
	nextChild int

	// idleChildren is an unordered list of child IDs that do not
	// have work.
	idleChildren []int

	// systemIdle is set if the last fetch returned nothing or
	// failed.  In this case, there will not be another fetch
	// until the wake timer fires.
	systemIdle bool

	// backOff computes the wait after failed fetches.
	backOff *backoff.ExponentialBackOff

	// mu protects leases and extending.
	mu sync.Mutex

	// leases maps the IDs of fetched tasks, queued or running, to
	// their locks.
	leases map[string]*lease

	// extending is set while a round of lock extensions runs.
	extending bool

	// extenders tracks lock extension goroutines.
	extenders sync.WaitGroup
}

// lease tracks the lock on a fetched task.
type lease struct {
	task    restdata.ExternalTask
	expires time.Time
	ctx     context.Context
	cancel  func()
}

// fetchResult is what a child reports after fetching.
type fetchResult int

const (
	gotTasks fetchResult = iota
	noTasks
	fetchFailed
)

var (
	// expirationWarning is a duration such that, if less than
	// this time is remaining on a task's lock, the worker will
	// extend it.
	expirationWarning = 30 * time.Second

	// ErrNoHandlers is returned by Run if the worker has nothing
	// to do.
	ErrNoHandlers = errors.New("worker has no task handlers")
)

// setDefaults sets default values for any Worker fields that are
// uninitialized.
func (w *Worker) setDefaults() {
	if w.WorkerID == "" {
		w.WorkerID = uuid.NewV4().String()
	}

	if w.Concurrency == 0 {
		w.Concurrency = runtime.NumCPU()
	}

	if w.PollInterval == time.Duration(0) {
		w.PollInterval = time.Duration(1) * time.Second
	}

	if w.MaxBackOff == time.Duration(0) {
		w.MaxBackOff = time.Duration(1) * time.Minute
	}

	if w.HeartbeatInterval == time.Duration(0) {
		w.HeartbeatInterval = time.Duration(15) * time.Second
	}

	if w.LockDuration == time.Duration(0) {
		w.LockDuration = time.Duration(1) * time.Minute
	}

	if w.MaxTasks == 0 {
		w.MaxTasks = 10
	}

	if w.Retries == 0 {
		w.Retries = 3
	}

	if w.Clock == nil {
		w.Clock = clock.New()
	}

	if w.Logger == nil {
		w.Logger = logrus.StandardLogger()
	}

	if w.Metrics == nil {
		w.Metrics = NewMetrics()
	}
}

// bootstrap checks the configuration and creates the worker's
// internal state.
func (w *Worker) bootstrap() error {
	if len(w.Handlers) == 0 {
		return ErrNoHandlers
	}
	w.leases = make(map[string]*lease)

	w.backOff = backoff.NewExponentialBackOff()
	w.backOff.InitialInterval = w.PollInterval
	w.backOff.MaxInterval = w.MaxBackOff
	w.backOff.MaxElapsedTime = 0
	w.backOff.Clock = w.Clock
	w.backOff.Reset()

	// Building a fetch request validates the URL and settings
	_, err := w.fetchRequest()
	return err
}

// Run runs external tasks forever, or until the provided context is
// cancelled.  If it returns, either the worker is misconfigured, in
// which case the corresponding error is returned, or execution was
// cancelled, returning nil.  Errors fetching tasks are passed to
// ErrorHandler and retried.
//
// Run waits for running handlers to return before returning.
func (w *Worker) Run(ctx context.Context) error {
	w.setDefaults()
	if err := w.bootstrap(); err != nil {
		return err
	}
	w.Logger.WithFields(logrus.Fields{
		"worker": w.WorkerID,
		"topics": w.topicNames(),
	}).Info("worker starting")

	// This channel is signaled in doWork() after the fetch
	// returns.  If it signals gotTasks, it triggers another child
	// if possible.  It is buffered so that the initial kick does
	// not need its own goroutine.
	gotWork := make(chan fetchResult, 1)

	// This channel is signaled at the end of doWork() with the
	// child ID.
	finished := make(chan int)

	// This channel, if non-nil, fires when an idle system should
	// try fetching again.
	var wake <-chan time.Time
	var timer *clock.Timer

	heartbeater := w.Clock.Ticker(w.HeartbeatInterval)
	defer heartbeater.Stop()

	gotWork <- gotTasks

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.drain(gotWork, finished)
			w.Logger.WithField("worker", w.WorkerID).Info("worker stopped")
			return nil

		case result := <-gotWork:
			if result == fetchFailed {
				w.systemIdle = true
				if wake == nil {
					timer = w.Clock.Timer(w.nextBackOff())
					wake = timer.C
				}
			} else {
				w.backOff.Reset()
				if result == gotTasks {
					if timer != nil {
						timer.Stop()
						timer = nil
						wake = nil
					}
					w.systemIdle = false
				} else {
					w.systemIdle = true
					if wake == nil {
						timer = w.Clock.Timer(w.PollInterval)
						wake = timer.C
					}
				}
			}
			w.maybeDoWork(ctx, gotWork, finished, false)

		case child := <-finished:
			w.returnIdleChild(child)
			w.maybeDoWork(ctx, gotWork, finished, false)

		case <-wake:
			// The system is idle, and the timer fired.
			// Forcibly start an idle child; its result
			// will rearm the timer or end the idle state.
			timer = nil
			wake = nil
			w.maybeDoWork(ctx, gotWork, finished, true)

		case <-heartbeater.C:
			w.goExtendLocks(ctx)
		}
	}
}

// nextBackOff returns the wait after a failed fetch.
func (w *Worker) nextBackOff() time.Duration {
	next := w.backOff.NextBackOff()
	if next == backoff.Stop {
		return w.MaxBackOff
	}
	return next
}

// drain waits for every busy child and any lock extension to
// finish.
func (w *Worker) drain(gotWork <-chan fetchResult, finished <-chan int) {
	busy := w.children - len(w.idleChildren)
	for busy > 0 {
		select {
		case <-gotWork:
		case <-finished:
			busy--
		}
	}
	w.extenders.Wait()
}

// getIdleChild returns the ID of a child that is not currently doing
// anything.  If the idle list is empty but there is room for another
// child, creates one.  Removes the returned child from the idle list.
// Returns false if every child is busy.
func (w *Worker) getIdleChild() (int, bool) {
	// Something in the idle list?  Just pick one
	if len(w.idleChildren) > 0 {
		child := w.idleChildren[0]
		w.idleChildren = w.idleChildren[1:]
		return child, true
	}

	// Can we support another child?  Create one
	if w.children < w.Concurrency {
		child := w.nextChild
		w.nextChild++
		w.children++
		return child, true
	}

	// Otherwise we're busy
	return 0, false
}

// returnIdleChild puts a child back into the idle list, or if the
// system is idle, retires it.
func (w *Worker) returnIdleChild(id int) {
	if w.systemIdle {
		w.children--
	} else {
		w.idleChildren = append(w.idleChildren, id)
	}
}

// maybeDoWork spawns a new goroutine to do work, if there is an idle
// child.  If the system is idle, a new goroutine is never generated
// unless evenIfIdle is true.
func (w *Worker) maybeDoWork(ctx context.Context, gotWork chan<- fetchResult, finished chan<- int, evenIfIdle bool) {
	if w.systemIdle && !evenIfIdle {
		return
	}
	child, ok := w.getIdleChild()
	if !ok {
		return
	}
	go w.doWork(ctx, child, gotWork, finished)
}

// doWork fetches tasks and runs them.  It assumes it is running in
// its own goroutine.  It signals gotWork when the fetch returns, and
// signals finished immediately before returning.
func (w *Worker) doWork(ctx context.Context, id int, gotWork chan<- fetchResult, finished chan<- int) {
	defer func() {
		finished <- id
	}()

	tasks, err := w.fetch(ctx)
	if err != nil {
		// Only report errors that are not part of shutting down
		if ctx.Err() == nil {
			w.handleError(err)
		}
		gotWork <- fetchFailed
		return
	}
	if len(tasks) == 0 {
		gotWork <- noTasks
		return
	}
	gotWork <- gotTasks

	// The whole batch is locked already; lease every task now so
	// the heartbeat extends the locks of tasks still waiting their
	// turn.
	for _, task := range tasks {
		w.acquire(ctx, task)
	}
	for _, task := range tasks {
		w.runTask(ctx, task)
	}
}

// topicNames returns the handled topics in sorted order.
func (w *Worker) topicNames() []string {
	names := make([]string, 0, len(w.Handlers))
	for name := range w.Handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lockDuration returns the lock duration for a topic.
func (w *Worker) lockDuration(topic string) time.Duration {
	if d := w.Topics[topic].LockDuration; d > 0 {
		return d
	}
	return w.LockDuration
}

// prepare applies the worker's transport settings to a request.
func (w *Worker) prepare(r *restclient.Request) {
	r.Timeout = w.Timeout
	r.Logger = w.Logger
	if w.HTTPClient != nil {
		r.Client = w.HTTPClient
	}
}

// fetchRequest builds the fetch-and-lock request for every handled
// topic.
func (w *Worker) fetchRequest() (*externaltask.FetchAndLockRequest, error) {
	req, err := externaltask.FetchAndLock(w.URL, w.WorkerID, w.MaxTasks, w.UsePriority)
	if err != nil {
		return nil, err
	}
	w.prepare(req.Request)
	for _, name := range w.topicNames() {
		req.AddTopic(name, milliseconds(w.lockDuration(name)), w.Topics[name].Options...)
	}
	return req, req.Err()
}

// fetch fetches and locks a batch of tasks.
func (w *Worker) fetch(ctx context.Context) ([]restdata.ExternalTask, error) {
	req, err := w.fetchRequest()
	if err != nil {
		return nil, err
	}
	start := w.Clock.Now()
	tasks, err := req.Send(ctx)
	w.Metrics.FetchDuration.Observe(w.Clock.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if len(tasks) > 0 {
		w.Logger.WithFields(logrus.Fields{
			"worker": w.WorkerID,
			"tasks":  len(tasks),
		}).Debug("fetched tasks")
	}
	return tasks, nil
}

func (w *Worker) handleError(err error) {
	w.Logger.WithError(err).WithField("worker", w.WorkerID).Warn("worker error")
	if w.ErrorHandler != nil {
		w.ErrorHandler(err)
	}
}

func milliseconds(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}
