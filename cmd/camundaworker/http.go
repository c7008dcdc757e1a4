// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

// newRouter builds the HTTP handler for the worker's status server.
// It serves gathered metrics at /metrics and a liveness check at
// /healthz.
func newRouter(gatherer prometheus.Gatherer, logger *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).
		Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	}).Methods("GET")

	recovery := negroni.NewRecovery()
	recovery.PrintStack = false
	recovery.Logger = logger
	n := negroni.New(recovery)
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		requests := negroni.NewLogger()
		requests.ALogger = logger
		n.Use(requests)
	}
	n.UseHandler(r)
	return n
}

// ServeHTTP runs the status server on laddr until it fails.  This
// probably wants to be run in a goroutine.
func ServeHTTP(laddr string, gatherer prometheus.Gatherer, logger *logrus.Logger) {
	err := http.ListenAndServe(laddr, newRouter(gatherer, logger))
	logger.WithFields(logrus.Fields{
		"err":  err,
		"addr": laddr,
	}).Error("Status server stopped")
}
