// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClient is matched by errors.Is for every ClientError.
var ErrClient = errors.New("camunda client error")

// ErrNoSuccess is matched by errors.Is for every NoSuccessError.
var ErrNoSuccess = errors.New("camunda request unsuccessful")

// ClientError is returned when a request could not be completed at
// the transport level: the engine was unreachable, the request timed
// out, or the response could not be decoded.
type ClientError struct {
	Err error
}

func (e *ClientError) Error() string {
	return "camunda request failed: " + e.Err.Error()
}

// Unwrap returns the underlying transport error.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrClient) true.
func (e *ClientError) Is(target error) bool {
	return target == ErrClient
}

// NoSuccessError is returned when the engine answered with a non-2xx
// status.  Its message is the response body, verbatim.
type NoSuccessError struct {
	// StatusCode is the numeric HTTP status, such as 404.
	StatusCode int

	// Status is the HTTP status line, such as "404 Not Found".
	Status string

	// Body is the complete response body.
	Body string

	// Type and Message are filled in from the body when it is an
	// engine error document, and are empty otherwise.
	Type    string
	Message string
}

func (e *NoSuccessError) Error() string {
	return e.Body
}

// Is makes errors.Is(err, ErrNoSuccess) true.
func (e *NoSuccessError) Is(target error) bool {
	return target == ErrNoSuccess
}

// ErrUnboundPath is returned from Resolve() when a path parameter has
// no value.
type ErrUnboundPath struct {
	Names []string
}

func (e ErrUnboundPath) Error() string {
	return fmt.Sprintf("unbound path parameter(s): %s", strings.Join(e.Names, ", "))
}

// ErrUnusedPath is returned from Resolve() when the schema declares
// path parameters that the URI template never expands.
type ErrUnusedPath struct {
	Template string
	Names    []string
}

func (e ErrUnusedPath) Error() string {
	return fmt.Sprintf("path parameter(s) %s not in template %q", strings.Join(e.Names, ", "), e.Template)
}

// ErrBadURL is returned from Resolve() when the engine base URL and
// path do not form an absolute URL.
type ErrBadURL struct {
	URL string
	Err error
}

func (e ErrBadURL) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid request URL %q: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("invalid request URL %q: not absolute", e.URL)
}

// Unwrap returns the URL parse error, if any.
func (e ErrBadURL) Unwrap() error {
	return e.Err
}
