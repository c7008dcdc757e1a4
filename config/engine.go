// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package config

import (
	"errors"
	"net/url"
	"strings"
)

// DefaultEngineURL is the REST API of a Camunda engine running
// locally with its stock configuration.
const DefaultEngineURL = "http://localhost:8080/engine-rest"

// Engine describes the user-visible location of a Camunda engine.
// This implements the flag.Value interface, and so a typical use is
//
//     func main() {
//         engine := config.Engine{URL: config.DefaultEngineURL}
//         flag.Var(&engine, "engine", "Camunda engine REST API URL")
//         flag.Parse()
//         req, err := externaltask.Get(engine.URL, id)
//     }
type Engine struct {
	// URL is the base URL of the engine's REST API, without a
	// trailing slash.
	URL string
}

// String renders the engine URL.
func (e *Engine) String() string {
	return e.URL
}

// Set parses a URL into an existing engine description.  The URL must
// be absolute, with an http or https scheme.  A trailing slash is
// removed, so that resource paths can be appended directly.
//
// This is part of the flag.Value interface.
func (e *Engine) Set(value string) error {
	if value == "" {
		return errors.New("must specify an engine URL")
	}
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("engine URL must be http or https: " + value)
	}
	if u.Host == "" {
		return errors.New("engine URL has no host: " + value)
	}
	e.URL = strings.TrimRight(value, "/")
	return nil
}
