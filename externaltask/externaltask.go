// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package externaltask provides requests against the external task
// resource of a Camunda engine.
//
// External tasks are units of work that the engine hands out to
// workers outside the engine.  A worker fetches and locks tasks for
// one or more topics, performs the work, and then reports back by
// completing the task, raising a BPMN error, or reporting a failure:
//
//     req, err := externaltask.FetchAndLock(url, "worker-1", 10, false)
//     if err != nil {
//         return err
//     }
//     tasks, err := req.AddTopic("invoice", 60000).Send(ctx)
//
// Every constructor validates its arguments and resolves the request
// URL, so an error from a constructor means no request was sent.
package externaltask

import (
	"context"

	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
)

// Suffix is the path of the external task resource, relative to the
// engine URL.
const Suffix = "/external-task"

var (
	idParam = &param.Descriptor{
		Name:     "id",
		Kind:     param.Path,
		Validate: param.Required,
	}

	getSchema = param.NewSchema(idParam)
)

// GetRequest retrieves a single external task.
type GetRequest struct {
	*restclient.Request
}

// Get creates a request for the external task with id.
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
func (r *GetRequest) Send(ctx context.Context) (*restdata.ExternalTask, error) {
	return restclient.GetOne(ctx, r.Request, restdata.LoadExternalTask)
}
