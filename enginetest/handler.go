// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package enginetest

// This file contains a small REST skeleton: a resource handler that
// decodes JSON bodies, dispatches on HTTP method, and turns returned
// errors into engine error documents.

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/diffeo/go-camunda/restdata"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// engineError is an error the engine reports to the client, with the
// HTTP status and exception type the real engine would use.
type engineError struct {
	Status  int
	Type    string
	Message string
}

func (e engineError) Error() string {
	return e.Message
}

func (e engineError) HTTPStatus() int {
	return e.Status
}

func notFound(format string, args ...interface{}) error {
	return engineError{
		Status:  http.StatusNotFound,
		Type:    "InvalidRequestException",
		Message: fmt.Sprintf(format, args...),
	}
}

func badRequest(format string, args ...interface{}) error {
	return engineError{
		Status:  http.StatusBadRequest,
		Type:    "InvalidRequestException",
		Message: fmt.Sprintf(format, args...),
	}
}

// badUserRequest is the engine's response to operations on a task
// that is locked by someone else, or not locked at all.
func badUserRequest(format string, args ...interface{}) error {
	return engineError{
		Status:  http.StatusInternalServerError,
		Type:    "BadUserRequestException",
		Message: fmt.Sprintf(format, args...),
	}
}

// call holds everything a handler function can learn from a request.
type call struct {
	Vars  map[string]string
	Query url.Values
	Body  map[string]interface{}
}

// DecodeQuery fills out, a pointer to a struct with "schema" tags,
// from the query string.
func (c *call) DecodeQuery(out interface{}) error {
	if err := queryDecoder.Decode(out, c.Query); err != nil {
		return badRequest("%v", err)
	}
	return nil
}

// DecodeBody fills out, a pointer to a struct with "json" tags, from
// the JSON request body.
func (c *call) DecodeBody(out interface{}) error {
	if err := decodeJSON(c.Body, out); err != nil {
		return badRequest("%v", err)
	}
	return nil
}

// BoolParam reads a boolean query parameter, returning def if it is
// absent or unparseable.
func (c *call) BoolParam(name string, def bool) bool {
	switch strings.ToLower(c.Query.Get(name)) {
	case "false":
		return false
	case "true":
		return true
	default:
		return def
	}
}

// decodeJSON converts a decoded JSON value into a tagged struct.
func decodeJSON(in, out interface{}) error {
	config := mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	}
	decoder, err := mapstructure.NewDecoder(&config)
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}

type resourceHandler struct {
	// Engine is locked around every handler function call.
	Engine *Engine

	// Get, if non-nil, returns a representation of the resource.
	Get func(*call) (interface{}, error)

	// Post, if non-nil, takes some action with the request body.
	// A nil result produces 204 No Content.
	Post func(*call) (interface{}, error)

	// Delete, if non-nil, deletes the resource.
	Delete func(*call) (interface{}, error)
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	var (
		out    interface{}
		err    error
		status int
	)

	// Recover from panics by sending an HTTP error.
	defer func() {
		if recovered := recover(); recovered != nil {
			writeJSON(resp, http.StatusInternalServerError, restdata.ErrorResponse{
				Type:    "RestException",
				Message: fmt.Sprint(recovered),
			})
		}
	}()

	c := &call{Vars: mux.Vars(req), Query: req.URL.Query()}

	// Read the JSON body, if it's there
	status = http.StatusBadRequest
	if req.Method == http.MethodPost || req.Method == http.MethodPut {
		c.Body = make(map[string]interface{})
		if req.ContentLength != 0 {
			contentType := req.Header.Get("Content-Type")
			err = restdata.Decode(contentType, req.Body, &c.Body)
			if err != nil {
				err = badRequest("%v", err)
			}
		}
	}

	if err == nil {
		err = engineError{
			Status:  http.StatusMethodNotAllowed,
			Type:    "RestException",
			Message: fmt.Sprintf("Method %v not allowed", req.Method),
		}
		status = http.StatusInternalServerError
		out, err = h.dispatch(req.Method, c, err)
	}

	if err != nil {
		if errS, hasStatus := err.(engineError); hasStatus {
			status = errS.HTTPStatus()
			out = restdata.ErrorResponse{Type: errS.Type, Message: errS.Message}
		} else {
			out = restdata.ErrorResponse{Type: "RestException", Message: err.Error()}
		}
	} else if out == nil {
		status = http.StatusNoContent
	} else {
		status = http.StatusOK
		if req.Method == http.MethodHead {
			out = nil
		}
	}
	writeJSON(resp, status, out)
}

// dispatch calls the handler function for method with the engine
// locked.  If there is none, it returns notAllowed.
func (h *resourceHandler) dispatch(method string, c *call, notAllowed error) (interface{}, error) {
	h.Engine.sem.Lock()
	defer h.Engine.sem.Unlock()
	switch method {
	case http.MethodGet, http.MethodHead:
		if h.Get != nil {
			return h.Get(c)
		}
	case http.MethodPost:
		if h.Post != nil {
			return h.Post(c)
		}
	case http.MethodDelete:
		if h.Delete != nil {
			return h.Delete(c)
		}
	}
	return nil, notAllowed
}

func writeJSON(resp http.ResponseWriter, status int, out interface{}) {
	if out != nil {
		resp.Header().Set("Content-Type", restdata.JSONMediaType)
	}
	resp.WriteHeader(status)
	if out != nil {
		// The status line is already out, so there is nothing
		// useful to do with an error here.
		_ = restdata.Encode(resp, out)
	}
}

// ordering maps sortBy values to comparison functions.
type ordering[T any] map[string]func(a, b T) bool

// apply sorts items in place following the sortBy and sortOrder
// query parameters.  Like the real engine, it insists that both or
// neither be given.
func (o ordering[T]) apply(items []T, sortBy, sortOrder string) error {
	if sortBy == "" && sortOrder == "" {
		return nil
	}
	if sortBy == "" || sortOrder == "" {
		return badRequest("Only a single sorting parameter specified. sortBy and sortOrder required")
	}
	less, ok := o[sortBy]
	if !ok {
		return badRequest("Cannot set query parameter 'sortBy' to value '%s'", sortBy)
	}
	var desc bool
	switch sortOrder {
	case "asc":
	case "desc":
		desc = true
	default:
		return badRequest("Cannot set query parameter 'sortOrder' to value '%s'", sortOrder)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
	return nil
}

// page applies firstResult and maxResults to a sorted result.
func page[T any](items []T, first int, max *int) []T {
	if first >= len(items) {
		return []T{}
	}
	if first > 0 {
		items = items[first:]
	}
	if max != nil && *max >= 0 && *max < len(items) {
		items = items[:*max]
	}
	return items
}

// splitList splits a comma-separated query parameter.  An empty
// parameter yields nil.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// formatTime renders an optional timestamp in the engine's format,
// or nil if unset.
func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return restdata.FormatTime(*t)
}
