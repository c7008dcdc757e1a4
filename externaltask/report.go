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
	variablesParam      = &param.Descriptor{Name: "variables", Kind: param.Body}
	localVariablesParam = &param.Descriptor{Name: "localVariables", Kind: param.Body}

	completeSchema = param.NewSchema(idParam, workerIDParam, variablesParam, localVariablesParam)
)

// CompleteRequest completes an external task locked by a worker.
type CompleteRequest struct {
	*restclient.Request
	variables      map[string]restdata.Variable
	localVariables map[string]restdata.Variable
}

// Complete creates a request completing task id on behalf of
// workerID.
func Complete(url, id, workerID string) (*CompleteRequest, error) {
	variables := map[string]restdata.Variable{}
	localVariables := map[string]restdata.Variable{}
	r, err := restclient.Build(url, Suffix+"/{id}/complete", completeSchema, func(b *param.Binder) {
		b.Bind(idParam, id).
			Bind(workerIDParam, workerID).
			Bind(variablesParam, variables).
			Bind(localVariablesParam, localVariables)
	})
	if err != nil {
		return nil, err
	}
	return &CompleteRequest{
		Request:        r,
		variables:      variables,
		localVariables: localVariables,
	}, nil
}

// AddVariable sets a process variable on the task's process instance.
func (r *CompleteRequest) AddVariable(name string, variable restdata.Variable) *CompleteRequest {
	r.variables[name] = variable
	return r
}

// AddLocalVariable sets a variable in the scope of the task only.
func (r *CompleteRequest) AddLocalVariable(name string, variable restdata.Variable) *CompleteRequest {
	r.localVariables[name] = variable
	return r
}

// Send performs the request.
func (r *CompleteRequest) Send(ctx context.Context) error {
	return r.Post(ctx, nil)
}

var (
	errorCodeParam    = &param.Descriptor{Name: "errorCode", Kind: param.Body}
	errorMessageParam = &param.Descriptor{Name: "errorMessage", Kind: param.Body}

	bpmnErrorSchema = param.NewSchema(idParam, workerIDParam, errorCodeParam, errorMessageParam, variablesParam)
)

// HandleBPMNErrorRequest reports a business error for a running task,
// which the process can catch with an error boundary event.
type HandleBPMNErrorRequest struct {
	*restclient.Request
	variables map[string]restdata.Variable
}

// HandleBPMNError creates a request raising the BPMN error errorCode
// for task id.  errorMessage is optional.
func HandleBPMNError(url, id, workerID, errorCode, errorMessage string) (*HandleBPMNErrorRequest, error) {
	variables := map[string]restdata.Variable{}
	r, err := restclient.Build(url, Suffix+"/{id}/bpmnError", bpmnErrorSchema, func(b *param.Binder) {
		b.Bind(idParam, id).
			Bind(workerIDParam, workerID).
			Bind(errorCodeParam, errorCode).
			String(errorMessageParam, errorMessage).
			Bind(variablesParam, variables)
	})
	if err != nil {
		return nil, err
	}
	return &HandleBPMNErrorRequest{Request: r, variables: variables}, nil
}

// AddVariable sets a process variable, visible to the error handler.
func (r *HandleBPMNErrorRequest) AddVariable(name string, variable restdata.Variable) *HandleBPMNErrorRequest {
	r.variables[name] = variable
	return r
}

// Send performs the request.
func (r *HandleBPMNErrorRequest) Send(ctx context.Context) error {
	return r.Post(ctx, nil)
}

var (
	errorDetailsParam = &param.Descriptor{Name: "errorDetails", Kind: param.Body}
	retriesParam      = &param.Descriptor{
		Name:     "retries",
		Kind:     param.Body,
		Validate: param.NonNegative,
	}
	retryTimeoutParam = &param.Descriptor{
		Name:     "retryTimeout",
		Kind:     param.Body,
		Validate: param.NonNegative,
	}

	failureSchema = param.NewSchema(idParam, workerIDParam, errorMessageParam,
		errorDetailsParam, retriesParam, retryTimeoutParam)
)

// HandleFailureRequest reports that a worker failed to execute a task.
type HandleFailureRequest struct {
	*restclient.Request
}

// HandleFailure creates a request reporting a failure of task id.
// The task may be fetched again after retryTimeout milliseconds, up
// to retries more times; with zero retries the engine raises an
// incident carrying errorMessage.  retries and retryTimeout must not
// be negative.
func HandleFailure(url, id, workerID, errorMessage, errorDetails string, retries int, retryTimeout int64) (*HandleFailureRequest, error) {
	r, err := restclient.Build(url, Suffix+"/{id}/failure", failureSchema, func(b *param.Binder) {
		b.Bind(idParam, id).
			Bind(workerIDParam, workerID).
			Bind(errorMessageParam, errorMessage).
			String(errorDetailsParam, errorDetails).
			Bind(retriesParam, retries).
			Bind(retryTimeoutParam, retryTimeout)
	})
	if err != nil {
		return nil, err
	}
	return &HandleFailureRequest{r}, nil
}

// Send performs the request.
func (r *HandleFailureRequest) Send(ctx context.Context) error {
	return r.Post(ctx, nil)
}

// UnlockRequest releases a worker's lock on a task.
type UnlockRequest struct {
	*restclient.Request
}

// Unlock creates a request unlocking task id, making it available to
// other workers immediately.
func Unlock(url, id string) (*UnlockRequest, error) {
	r, err := restclient.Build(url, Suffix+"/{id}/unlock", getSchema, func(b *param.Binder) {
		b.Bind(idParam, id)
	})
	if err != nil {
		return nil, err
	}
	return &UnlockRequest{r}, nil
}

// Send performs the request.
func (r *UnlockRequest) Send(ctx context.Context) error {
	return r.Post(ctx, nil)
}

var (
	newDurationParam = &param.Descriptor{
		Name:     "newDuration",
		Kind:     param.Body,
		Validate: param.NonNegative,
	}

	extendLockSchema = param.NewSchema(idParam, workerIDParam, newDurationParam)
)

// ExtendLockRequest extends a worker's lock on a task.
type ExtendLockRequest struct {
	*restclient.Request
}

// ExtendLock creates a request setting the lock of task id to expire
// newDuration milliseconds from now.  The task must be locked by
// workerID.
func ExtendLock(url, id, workerID string, newDuration int64) (*ExtendLockRequest, error) {
	r, err := restclient.Build(url, Suffix+"/{id}/extendLock", extendLockSchema, func(b *param.Binder) {
		b.Bind(idParam, id).
			Bind(workerIDParam, workerID).
			Bind(newDurationParam, newDuration)
	})
	if err != nil {
		return nil, err
	}
	return &ExtendLockRequest{r}, nil
}

// Send performs the request.
func (r *ExtendLockRequest) Send(ctx context.Context) error {
	return r.Post(ctx, nil)
}
