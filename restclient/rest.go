// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides the request base shared by every
// Camunda REST request type.
//
// A Request combines an engine base URL, a URI template for the
// resource path, and a param.Set holding the request's parameter
// values.  Resource packages build a Request, bind their parameters,
// call Resolve() to fix the URL, and later dispatch it exactly once
// with Do():
//
//     r := restclient.New("http://localhost:8080/engine-rest",
//         "/external-task/{id}", schema)
//     err := r.Bind(id, "anId")
//     if err == nil {
//         err = r.Resolve()
//     }
//     var out map[string]interface{}
//     if err == nil {
//         err = r.Get(ctx, &out)
//     }
package restclient

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restdata"
	"github.com/jtacoma/uritemplates"
	"github.com/sirupsen/logrus"
)

// Request is one REST call under construction.  Requests are not
// safe for concurrent use, and are meant to be sent once.
type Request struct {
	*param.Set

	// Timeout, if positive, bounds the whole HTTP round trip in
	// addition to any deadline on the context passed to Do.
	Timeout time.Duration

	// Client performs the HTTP call.  If nil, uses
	// http.DefaultClient.
	Client *http.Client

	// Logger receives debug output about dispatched requests.  If
	// nil, uses the logrus standard logger.
	Logger logrus.FieldLogger

	base     string
	template string
	url      string
}

// New creates a request for a resource.  template is an RFC 6570 URI
// template, such as "/external-task/{id}/complete", whose variables
// are the wire names of the path parameters in schema.  The expanded
// template is appended to baseURL.
func New(baseURL, template string, schema *param.Schema) *Request {
	return &Request{
		Set:      param.NewSet(schema),
		base:     baseURL,
		template: template,
	}
}

// Build creates a request, binds its parameters with bind, and
// resolves its URL.  Any binding or resolution error is returned
// before a request exists, so no network call can follow it.
func Build(baseURL, template string, schema *param.Schema, bind func(*param.Binder)) (*Request, error) {
	r := New(baseURL, template, schema)
	if bind != nil {
		b := &param.Binder{Set: r.Set}
		bind(b)
		if b.Err != nil {
			return nil, b.Err
		}
	}
	if err := r.Resolve(); err != nil {
		return nil, err
	}
	return r, nil
}

// WithTimeout sets the request timeout.
func (r *Request) WithTimeout(timeout time.Duration) *Request {
	r.Timeout = timeout
	return r
}

// WithHTTPClient sets the HTTP client used to send the request.
func (r *Request) WithHTTPClient(client *http.Client) *Request {
	r.Client = client
	return r
}

// WithLogger sets the logger for the request.
func (r *Request) WithLogger(logger logrus.FieldLogger) *Request {
	r.Logger = logger
	return r
}

// Resolve expands the path template with the bound path parameters
// and fixes the request URL.  Every template variable must name a
// bound path parameter, and every path parameter in the schema must
// appear in the template.  Calling Resolve again with the same values
// produces the same URL.
func (r *Request) Resolve() error {
	tmpl, err := uritemplates.Parse(r.template)
	if err != nil {
		return err
	}
	used := make(map[string]bool)
	var missing []string
	for _, name := range tmpl.Names() {
		used[name] = true
		d := r.Schema().Lookup(param.Path, name)
		if d == nil || !r.IsBound(d) {
			missing = append(missing, name)
		}
	}
	var unused []string
	for _, d := range r.Schema().Descriptors() {
		if d.Kind == param.Path && !used[d.Name] {
			unused = append(unused, d.Name)
		}
	}
	if len(unused) > 0 {
		return ErrUnusedPath{Template: r.template, Names: unused}
	}
	if len(missing) > 0 {
		return ErrUnboundPath{Names: missing}
	}

	vars := make(map[string]interface{})
	for name, value := range r.PathValues() {
		vars[name] = fmt.Sprint(value)
	}
	expanded, err := tmpl.Expand(vars)
	if err != nil {
		return err
	}

	full := r.base + expanded
	parsed, err := url.Parse(full)
	if err != nil {
		return ErrBadURL{URL: full, Err: err}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return ErrBadURL{URL: full}
	}
	r.url = full
	return nil
}

// URL returns the resolved request URL, without the query string.
// It is empty until Resolve succeeds.
func (r *Request) URL() string {
	return r.url
}

// QueryParameters returns the query string parameters that will be
// sent, in declaration order.
func (r *Request) QueryParameters() param.Fields {
	return r.Collect(param.Query)
}

// BodyParameters returns the members of the JSON body that will be
// sent, in declaration order.
func (r *Request) BodyParameters() param.Fields {
	return r.Collect(param.Body)
}

func (r *Request) logger() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger
	}
	return logrus.StandardLogger()
}

func (r *Request) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

// Do performs one HTTP request.  For POST and PUT requests the body
// parameters are sent as a JSON object.  If out is non-nil, the
// response body is decoded into it, and it must be of pointer type.
//
// A transport failure, including an undecodable response, returns a
// *ClientError.  A non-2xx response returns a *NoSuccessError.
func (r *Request) Do(ctx context.Context, method string, out interface{}) (err error) {
	if r.url == "" {
		if err = r.Resolve(); err != nil {
			return err
		}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	target := r.url
	if query := r.QueryParameters(); len(query) > 0 {
		target += "?" + encodeQuery(query).Encode()
	}
	log := r.logger().WithFields(logrus.Fields{
		"method": method,
		"url":    target,
	})

	// Set up the body as serialized JSON, if there is one
	var body []byte
	hasBody := method == http.MethodPost || method == http.MethodPut
	if hasBody {
		body, err = restdata.EncodeBytes(r.BodyParameters().Map())
		if err != nil {
			return &ClientError{Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return &ClientError{Err: err}
	}
	if hasBody {
		req.Header.Set("Content-Type", restdata.JSONMediaType)
	}
	req.Header.Set("Accept", restdata.JSONMediaType)

	log.Debug("sending request")
	resp, err := r.client().Do(req)
	if err != nil {
		log.WithField("err", err).Debug("request failed")
		return &ClientError{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = firstError(err, &ClientError{Err: closeErr})
		}
	}()

	log = log.WithField("status", resp.StatusCode)
	if err = checkHTTPStatus(resp); err != nil {
		log.WithField("err", err).Debug("engine reported failure")
		return err
	}
	log.Debug("request succeeded")

	if out != nil {
		contentType := resp.Header.Get("Content-Type")
		if decodeErr := restdata.Decode(contentType, resp.Body, out); decodeErr != nil {
			return &ClientError{Err: decodeErr}
		}
	}
	return nil
}

// Get performs an HTTP GET and decodes the response into out.
func (r *Request) Get(ctx context.Context, out interface{}) error {
	return r.Do(ctx, http.MethodGet, out)
}

// Post performs an HTTP POST with the body parameters and decodes
// the response into out, which may be nil.
func (r *Request) Post(ctx context.Context, out interface{}) error {
	return r.Do(ctx, http.MethodPost, out)
}

// Delete performs an HTTP DELETE.
func (r *Request) Delete(ctx context.Context) error {
	return r.Do(ctx, http.MethodDelete, nil)
}

// Count performs an HTTP GET against a count endpoint and returns the
// count.
func (r *Request) Count(ctx context.Context) (int64, error) {
	var data map[string]interface{}
	if err := r.Get(ctx, &data); err != nil {
		return 0, err
	}
	count, err := restdata.LoadCount(data)
	return count.Count, err
}

// GetOne performs an HTTP GET of a single JSON object and loads it
// with load.
func GetOne[T any](ctx context.Context, r *Request, load func(map[string]interface{}) (T, error)) (*T, error) {
	var data map[string]interface{}
	if err := r.Get(ctx, &data); err != nil {
		return nil, err
	}
	record, err := load(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetList performs an HTTP GET of a JSON array and loads each element
// with load.
func GetList[T any](ctx context.Context, r *Request, load func(map[string]interface{}) (T, error)) ([]T, error) {
	var data []map[string]interface{}
	if err := r.Get(ctx, &data); err != nil {
		return nil, err
	}
	return LoadList(data, load)
}

// PostList performs an HTTP POST and loads each element of the
// returned JSON array with load.
func PostList[T any](ctx context.Context, r *Request, load func(map[string]interface{}) (T, error)) ([]T, error) {
	var data []map[string]interface{}
	if err := r.Post(ctx, &data); err != nil {
		return nil, err
	}
	return LoadList(data, load)
}

// LoadList loads every element of a decoded JSON array.  The result
// is never nil, so an empty array yields an empty slice.
func LoadList[T any](data []map[string]interface{}, load func(map[string]interface{}) (T, error)) ([]T, error) {
	result := make([]T, 0, len(data))
	for _, item := range data {
		record, err := load(item)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}

// encodeQuery converts wire fields to a query string.  Lists are
// comma-separated, which is how the engine reads its "...In"
// parameters.  url.Values.Encode sorts by name, so the wire order is
// alphabetical rather than the declaration order QueryParameters
// reports.
func encodeQuery(fields param.Fields) url.Values {
	values := url.Values{}
	for _, field := range fields {
		values.Set(field.Name, queryValue(field.Value))
	}
	return values
}

func queryValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []string:
		return strings.Join(v, ",")
	case time.Time:
		return restdata.FormatTime(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// checkHTTPStatus examines an HTTP response and returns an error if
// it is not successful.
func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Always collect the entire body; it is the error text.
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return &ClientError{Err: err}
	}
	result := &NoSuccessError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}

	// Take a shot at decoding it as an engine error document
	var errResp restdata.ErrorResponse
	contentType := resp.Header.Get("Content-Type")
	if restdata.Decode(contentType, bytes.NewReader(body), &errResp) == nil {
		result.Type = errResp.Type
		result.Message = errResp.Message
	}
	return result
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
