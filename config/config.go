// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package config loads worker configuration from YAML files.
//
// A configuration file looks like
//
//     engine_url: http://camunda:8080/engine-rest
//     worker_id: invoice-worker
//     timeout: 30s
//     max_tasks: 5
//     lock_duration: 2m
//     topics:
//       - name: invoice
//         variables: [amount, customer]
//       - name: archive
//         lock_duration: 10m
//
// Durations are strings in time.ParseDuration format.  Unknown keys
// are an error.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/diffeo/go-camunda/externaltask"
	"github.com/diffeo/go-camunda/worker"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// Config is the complete worker configuration.
type Config struct {
	EngineURL    string        `mapstructure:"engine_url"`
	WorkerID     string        `mapstructure:"worker_id"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxTasks     int           `mapstructure:"max_tasks" validate:"gte=0"`
	UsePriority  bool          `mapstructure:"use_priority"`
	Concurrency  int           `mapstructure:"concurrency" validate:"gte=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gte=0"`
	LockDuration time.Duration `mapstructure:"lock_duration" validate:"gte=0"`
	Retries      int           `mapstructure:"retries" validate:"gte=0"`
	RetryTimeout time.Duration `mapstructure:"retry_timeout" validate:"gte=0"`

	// MetricsAddr is the [ip]:port the worker serves metrics on.
	MetricsAddr string `mapstructure:"metrics_addr"`

	Topics []Topic `mapstructure:"topics" validate:"dive"`
}

// Topic configures fetching for one topic.
type Topic struct {
	Name              string        `mapstructure:"name" validate:"required"`
	LockDuration      time.Duration `mapstructure:"lock_duration" validate:"gte=0"`
	Variables         []string      `mapstructure:"variables"`
	LocalVariables    bool          `mapstructure:"local_variables"`
	DeserializeValues bool          `mapstructure:"deserialize_values"`
	BusinessKey       string        `mapstructure:"business_key"`
}

var validate = validator.New()

// Load reads a YAML configuration file.
func Load(filename string) (*Config, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(bytes)
}

// Parse reads YAML configuration from memory.
func Parse(bytes []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(bytes, &raw); err != nil {
		return nil, err
	}
	return Decode(raw)
}

// Decode builds a configuration from a generic map, such as decoded
// YAML, filling in defaults and validating the result.
func Decode(raw map[string]interface{}) (*Config, error) {
	config := Config{EngineURL: DefaultEngineURL}
	decoderConfig := mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      &config,
	}
	decoder, err := mapstructure.NewDecoder(&decoderConfig)
	if err != nil {
		return nil, err
	}
	if err = decoder.Decode(raw); err != nil {
		return nil, err
	}

	var engine Engine
	if err = engine.Set(config.EngineURL); err != nil {
		return nil, err
	}
	config.EngineURL = engine.URL

	if err = validate.Struct(&config); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, topic := range config.Topics {
		if _, dup := seen[topic.Name]; dup {
			return nil, fmt.Errorf("topic %q configured twice", topic.Name)
		}
		seen[topic.Name] = struct{}{}
	}
	return &config, nil
}

// TopicNames returns the configured topic names in order.
func (c *Config) TopicNames() []string {
	names := make([]string, len(c.Topics))
	for i, topic := range c.Topics {
		names[i] = topic.Name
	}
	return names
}

// options converts a topic's settings to fetch options.
func (t Topic) options() []externaltask.TopicOption {
	var opts []externaltask.TopicOption
	if t.Variables != nil {
		opts = append(opts, externaltask.WithVariables(t.Variables...))
	}
	if t.LocalVariables {
		opts = append(opts, externaltask.LocalVariables())
	}
	if t.DeserializeValues {
		opts = append(opts, externaltask.DeserializeValues())
	}
	if t.BusinessKey != "" {
		opts = append(opts, externaltask.WithBusinessKey(t.BusinessKey))
	}
	return opts
}

// NewWorker creates a worker from the configuration.  handler is
// called once per configured topic to get its handler; a nil result
// is an error.
func (c *Config) NewWorker(handler func(topic string) worker.Handler) (*worker.Worker, error) {
	w := &worker.Worker{
		URL:          c.EngineURL,
		WorkerID:     c.WorkerID,
		Handlers:     make(map[string]worker.Handler),
		Topics:       make(map[string]worker.Topic),
		LockDuration: c.LockDuration,
		MaxTasks:     c.MaxTasks,
		UsePriority:  c.UsePriority,
		Concurrency:  c.Concurrency,
		PollInterval: c.PollInterval,
		Retries:      c.Retries,
		RetryTimeout: c.RetryTimeout,
		Timeout:      c.Timeout,
	}
	for _, topic := range c.Topics {
		h := handler(topic.Name)
		if h == nil {
			return nil, fmt.Errorf("no handler for topic %q", topic.Name)
		}
		w.Handlers[topic.Name] = h
		w.Topics[topic.Name] = worker.Topic{
			LockDuration: topic.LockDuration,
			Options:      topic.options(),
		}
	}
	return w, nil
}
