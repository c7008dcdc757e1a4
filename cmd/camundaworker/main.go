// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package camundaworker provides a complete demonstration external
// task worker.  It subscribes to the topics named in its YAML
// configuration file and completes every task it is handed, echoing
// the task's variables back to the engine along with the name of the
// worker that handled it.
//
//     camundaworker -config worker.yaml -engine http://camunda:8080/engine-rest
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/diffeo/go-camunda/config"
	"github.com/diffeo/go-camunda/restdata"
	"github.com/diffeo/go-camunda/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// echo returns a handler that completes tasks with their own
// variables plus a "handledBy" variable naming workerID.
func echo(workerID string) worker.Handler {
	return func(ctx context.Context, task restdata.ExternalTask) (map[string]restdata.Variable, error) {
		variables := make(map[string]restdata.Variable, len(task.Variables)+1)
		for name, variable := range task.Variables {
			variables[name] = variable
		}
		variables["handledBy"] = restdata.Variable{Value: workerID, Type: "String"}
		return variables, nil
	}
}

func main() {
	configFile := flag.String("config", "", "worker configuration YAML file")
	var engine config.Engine
	flag.Var(&engine, "engine", "Camunda engine REST API URL, overriding the configuration")
	metricsAddr := flag.String("metrics", "", "[ip]:port for the status server, overriding the configuration")
	debug := flag.Bool("debug", false, "log every request")
	flag.Parse()

	logger := logrus.StandardLogger()
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *configFile == "" {
		logger.Fatal("-config is required")
		return
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"err":  err,
			"file": *configFile,
		}).Fatal("Could not load YAML configuration")
		return
	}
	if engine.URL != "" {
		cfg.EngineURL = engine.URL
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if cfg.WorkerID == "" {
		hostname, _ := os.Hostname()
		cfg.WorkerID = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}

	w, err := cfg.NewWorker(func(topic string) worker.Handler {
		return echo(cfg.WorkerID)
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not create worker")
		return
	}
	w.Logger = logger
	w.Metrics = worker.NewMetrics()

	registry := prometheus.NewRegistry()
	registry.MustRegister(w.Metrics)
	registry.MustRegister(prometheus.NewGoCollector())
	if cfg.MetricsAddr != "" {
		go ServeHTTP(cfg.MetricsAddr, registry, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.WithFields(logrus.Fields{
		"engine": cfg.EngineURL,
		"topics": cfg.TopicNames(),
	}).Info("Worker starting")
	if err = w.Run(ctx); err != nil {
		logger.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Worker failed")
	}
}
