// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package processinst provides requests against the process instance
// resource of a Camunda engine.
package processinst

import (
	"context"

	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
)

// Suffix is the path of the process instance resource, relative to
// the engine URL.
const Suffix = "/process-instance"

var (
	idParam = &param.Descriptor{
		Name:     "id",
		Kind:     param.Path,
		Validate: param.Required,
	}

	getSchema = param.NewSchema(idParam)
)

// GetRequest retrieves a single process instance.
type GetRequest struct {
	*restclient.Request
}

// Get creates a request for the process instance with id.
func Get(url, id string) (*GetRequest, error) {
	r, err := restclient.Build(url, Suffix+"/{id}", getSchema, func(b *param.Binder) {
		b.Bind(idParam, id)
	})
	if err != nil {
		return nil, err
	}
	return &GetRequest{r}, nil
}

// Send performs the request.
func (r *GetRequest) Send(ctx context.Context) (*restdata.ProcessInstance, error) {
	return restclient.GetOne(ctx, r.Request, restdata.LoadProcessInstance)
}

// DeleteOptions controls what happens when a process instance is
// deleted.  The zero value runs all listeners, input/output mappings,
// and subprocess deletions, and fails if the instance does not exist.
type DeleteOptions struct {
	SkipCustomListeners bool
	SkipIoMappings      bool
	SkipSubprocesses    bool

	// AllowMissing makes deleting a nonexistent instance succeed.
	AllowMissing bool
}

var (
	skipCustomListenersParam = &param.Descriptor{
		Name:    "skipCustomListeners",
		Kind:    param.Query,
		Provide: param.IsTrue,
	}
	skipIoMappingsParam = &param.Descriptor{
		Name:    "skipIoMappings",
		Kind:    param.Query,
		Provide: param.IsTrue,
	}
	skipSubprocessesParam = &param.Descriptor{
		Name:    "skipSubprocesses",
		Kind:    param.Query,
		Provide: param.IsTrue,
	}
	failIfNotExistsParam = &param.Descriptor{
		Name:    "failIfNotExists",
		Kind:    param.Query,
		Mapping: map[interface{}]interface{}{false: true, true: false},
	}

	deleteSchema = param.NewSchema(
		idParam, skipCustomListenersParam, skipIoMappingsParam,
		skipSubprocessesParam, failIfNotExistsParam,
	)
)

// DeleteRequest deletes a process instance.
type DeleteRequest struct {
	*restclient.Request
}

// Delete creates a request deleting the process instance with id.
func Delete(url, id string, opts DeleteOptions) (*DeleteRequest, error) {
	r, err := restclient.Build(url, Suffix+"/{id}", deleteSchema, func(b *param.Binder) {
		b.Bind(idParam, id).
			Flag(skipCustomListenersParam, opts.SkipCustomListeners).
			Flag(skipIoMappingsParam, opts.SkipIoMappings).
			Flag(skipSubprocessesParam, opts.SkipSubprocesses).
			Bind(failIfNotExistsParam, opts.AllowMissing)
	})
	if err != nil {
		return nil, err
	}
	return &DeleteRequest{r}, nil
}

// Send performs the request.
func (r *DeleteRequest) Send(ctx context.Context) error {
	return r.Delete(ctx)
}
