// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/diffeo/go-camunda/externaltask"
	"github.com/diffeo/go-camunda/restdata"
	"github.com/sirupsen/logrus"
)

// BPMNError is returned by a Handler to raise a business error in the
// process, which a boundary error event can catch.
type BPMNError struct {
	// Code is matched against the process's error events.
	Code string

	// Message is an optional description.
	Message string

	// Variables are set on the process instance along with the
	// error.
	Variables map[string]restdata.Variable
}

func (e *BPMNError) Error() string {
	if e.Message == "" {
		return "BPMN error " + e.Code
	}
	return fmt.Sprintf("BPMN error %s: %s", e.Code, e.Message)
}

// taskLogger returns a logger with the standard fields for a task.
func (w *Worker) taskLogger(task restdata.ExternalTask) logrus.FieldLogger {
	return w.Logger.WithFields(logrus.Fields{
		"topic":  task.TopicName,
		"task":   task.ID,
		"worker": w.WorkerID,
	})
}

// runTask runs one task through its handler and reports the result.
// If ctx is already done, the task is unlocked instead.  If the task's
// lock was lost while it waited to run, it is dropped.
func (w *Worker) runTask(ctx context.Context, task restdata.ExternalTask) {
	log := w.taskLogger(task)
	reportCtx := context.WithoutCancel(ctx)

	if ctx.Err() != nil {
		w.release(task.ID)
		if err := w.unlock(reportCtx, task); err != nil {
			w.handleError(err)
		}
		return
	}

	taskCtx := w.acquire(ctx, task)
	defer w.release(task.ID)
	if taskCtx.Err() != nil {
		w.Metrics.observeTask(task.TopicName, OutcomeLockLost)
		log.WithField("outcome", OutcomeLockLost).Warn("task lock lost before it ran")
		return
	}

	var (
		variables map[string]restdata.Variable
		result    error
	)
	handler := w.Handlers[task.TopicName]
	if handler == nil {
		result = fmt.Errorf("no handler for topic %q", task.TopicName)
	} else {
		log.Debug("running task")
		variables, result = call(taskCtx, handler, task)
	}

	outcome, err := w.report(reportCtx, task, variables, result)
	if err != nil {
		outcome = OutcomeReportError
		w.handleError(err)
	}
	w.Metrics.observeTask(task.TopicName, outcome)

	log = log.WithField("outcome", outcome)
	if result != nil {
		log.WithError(result).Info("task did not complete")
	} else {
		log.Info("task completed")
	}
}

// call runs a handler, converting a panic into an error.
func call(ctx context.Context, handler Handler, task restdata.ExternalTask) (variables map[string]restdata.Variable, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			variables = nil
			err = fmt.Errorf("handler panicked: %v", recovered)
		}
	}()
	return handler(ctx, task)
}

// report sends a handler's result to the engine, returning the task
// outcome.
func (w *Worker) report(ctx context.Context, task restdata.ExternalTask, variables map[string]restdata.Variable, result error) (string, error) {
	var bpmnError *BPMNError
	switch {
	case result == nil:
		req, err := externaltask.Complete(w.URL, task.ID, w.WorkerID)
		if err != nil {
			return OutcomeCompleted, err
		}
		w.prepare(req.Request)
		for name, variable := range variables {
			req.AddVariable(name, variable)
		}
		return OutcomeCompleted, req.Send(ctx)

	case errors.As(result, &bpmnError):
		req, err := externaltask.HandleBPMNError(w.URL, task.ID, w.WorkerID, bpmnError.Code, bpmnError.Message)
		if err != nil {
			return OutcomeBPMNError, err
		}
		w.prepare(req.Request)
		for name, variable := range bpmnError.Variables {
			req.AddVariable(name, variable)
		}
		return OutcomeBPMNError, req.Send(ctx)

	default:
		req, err := externaltask.HandleFailure(w.URL, task.ID, w.WorkerID,
			result.Error(), "", w.remainingRetries(task), milliseconds(w.RetryTimeout))
		if err != nil {
			return OutcomeFailed, err
		}
		w.prepare(req.Request)
		return OutcomeFailed, req.Send(ctx)
	}
}

// remainingRetries returns the retries a task has left after failing
// now.  A task that has never failed has no retries set, and gets
// the worker's configured number.
func (w *Worker) remainingRetries(task restdata.ExternalTask) int {
	if task.Retries == nil {
		return w.Retries
	}
	if *task.Retries <= 1 {
		return 0
	}
	return *task.Retries - 1
}

// unlock releases a fetched task without running it.
func (w *Worker) unlock(ctx context.Context, task restdata.ExternalTask) error {
	req, err := externaltask.Unlock(w.URL, task.ID)
	if err != nil {
		return err
	}
	w.prepare(req.Request)
	return req.Send(ctx)
}

// acquire records a lease for a fetched task, returning the context
// for its handler.  A task that already has a lease keeps it.
func (w *Worker) acquire(ctx context.Context, task restdata.ExternalTask) context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l, ok := w.leases[task.ID]; ok {
		return l.ctx
	}
	taskCtx, cancel := context.WithCancel(ctx)
	expires := w.Clock.Now().Add(w.lockDuration(task.TopicName))
	if task.LockExpirationTime != nil {
		expires = *task.LockExpirationTime
	}
	w.leases[task.ID] = &lease{task: task, expires: expires, ctx: taskCtx, cancel: cancel}
	return taskCtx
}

// release forgets a task's lease.
func (w *Worker) release(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l, ok := w.leases[id]; ok {
		l.cancel()
		delete(w.leases, id)
	}
}

// expiringLeases returns copies of the leases that expire within
// expirationWarning.
func (w *Worker) expiringLeases() []lease {
	now := w.Clock.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	var result []lease
	for _, l := range w.leases {
		if l.expires.Sub(now) < expirationWarning {
			result = append(result, *l)
		}
	}
	return result
}

// goExtendLocks runs extendLocks in the background, unless the
// previous round is still going.
func (w *Worker) goExtendLocks(ctx context.Context) {
	w.mu.Lock()
	if w.extending {
		w.mu.Unlock()
		return
	}
	w.extending = true
	w.mu.Unlock()

	w.extenders.Add(1)
	go func() {
		defer w.extenders.Done()
		w.extendLocks(ctx)
		w.mu.Lock()
		w.extending = false
		w.mu.Unlock()
	}()
}

// extendLocks extends the locks of fetched tasks that are about to
// expire.  If a lock cannot be extended, the task's handler is
// canceled, since another worker may fetch the task.
func (w *Worker) extendLocks(ctx context.Context) {
	for _, l := range w.expiringLeases() {
		duration := w.lockDuration(l.task.TopicName)
		req, err := externaltask.ExtendLock(w.URL, l.task.ID, w.WorkerID, milliseconds(duration))
		if err == nil {
			w.prepare(req.Request)
			err = req.Send(ctx)
		}
		if err != nil {
			w.taskLogger(l.task).WithError(err).Warn("could not extend lock")
			l.cancel()
			continue
		}
		expires := w.Clock.Now().Add(duration)
		w.mu.Lock()
		if current, ok := w.leases[l.task.ID]; ok {
			current.expires = expires
		}
		w.mu.Unlock()
	}
}
