// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diffeo/go-camunda/restdata"
	"github.com/diffeo/go-camunda/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcho(t *testing.T) {
	handler := echo("w1")
	vars, err := handler(context.Background(), restdata.ExternalTask{
		ID: "t1",
		Variables: map[string]restdata.Variable{
			"amount": {Value: "10", Type: "String"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]restdata.Variable{
		"amount":    {Value: "10", Type: "String"},
		"handledBy": {Value: "w1", Type: "String"},
	}, vars)
}

func get(t *testing.T, handler http.Handler, path string) (int, string) {
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestStatusServer(t *testing.T) {
	logger := logrus.New()
	logger.Out = io.Discard
	metrics := worker.NewMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics)
	metrics.Tasks.WithLabelValues("invoice", "completed").Inc()

	router := newRouter(registry, logger)

	code, body := get(t, router, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `camunda_worker_tasks_total{outcome="completed",topic="invoice"} 1`)

	code, body = get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok\n", body)

	code, _ = get(t, router, "/nope")
	assert.Equal(t, http.StatusNotFound, code)
}
