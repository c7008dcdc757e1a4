// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package camunda provides a command-line client for the Camunda
// engine REST API.  Every command prints its result as JSON.
//
//     camunda --engine http://localhost:8080/engine-rest external-task list --topic invoice
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/diffeo/go-camunda/config"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// env holds the global settings every command uses.
type env struct {
	Engine  config.Engine
	Timeout time.Duration
	Logger  *logrus.Logger
}

// prepare applies the global settings to a request.
func (e *env) prepare(r *restclient.Request) {
	r.Timeout = e.Timeout
	r.Logger = e.Logger
}

// print writes v to the command's output as JSON.
func (e *env) print(c *cli.Context, v interface{}) error {
	if err := restdata.Encode(c.App.Writer, v); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.App.Writer)
	return err
}

// requireArg returns the single positional argument of a command.
func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s requires exactly one %s argument", c.Command.Name, name)
	}
	return c.Args().First(), nil
}

// optionalInt returns a pointer to an integer flag's value if it was
// given, or nil.
func optionalInt(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	value := c.Int(name)
	return &value
}

// parseVariables parses "name=value" pairs into string variables.
func parseVariables(pairs []string) (map[string]restdata.Variable, error) {
	variables := make(map[string]restdata.Variable, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("variable %q is not name=value", pair)
		}
		variables[parts[0]] = restdata.Variable{Value: parts[1], Type: "String"}
	}
	return variables, nil
}

// sortKey looks up a --sort flag value.
func sortKey[K comparable](c *cli.Context, keys map[string]K) (K, error) {
	var zero K
	name := c.String("sort")
	if name == "" {
		return zero, nil
	}
	key, ok := keys[name]
	if !ok {
		choices := make([]string, 0, len(keys))
		for choice := range keys {
			choices = append(choices, choice)
		}
		sort.Strings(choices)
		return zero, fmt.Errorf("unknown sort key %q (want one of %s)", name, strings.Join(choices, ", "))
	}
	return key, nil
}

var (
	sortFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "sort",
			Usage: "sort results by this property",
		},
		cli.BoolFlag{
			Name:  "desc",
			Usage: "sort in descending order",
		},
	}
	pageFlags = []cli.Flag{
		cli.IntFlag{
			Name:  "first",
			Usage: "skip this many results",
		},
		cli.IntFlag{
			Name:  "max",
			Usage: "return at most this many results",
		},
	}
)

func concatFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, group := range groups {
		flags = append(flags, group...)
	}
	return flags
}

func newApp(e *env) *cli.App {
	app := cli.NewApp()
	app.Name = "camunda"
	app.Usage = "talk to a Camunda engine"
	app.Flags = []cli.Flag{
		cli.GenericFlag{
			Name:   "engine",
			Value:  &e.Engine,
			Usage:  "Camunda engine REST API URL",
			EnvVar: "CAMUNDA_ENGINE",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: 30 * time.Second,
			Usage: "give up on requests after this long",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "log every request",
		},
	}
	app.Commands = []cli.Command{
		e.externalTaskCommand(),
		e.historyCommand(),
		e.filterCommand(),
		e.processInstanceCommand(),
	}
	app.Before = func(c *cli.Context) error {
		e.Timeout = c.Duration("timeout")
		if c.Bool("debug") {
			e.Logger.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
	return app
}

func main() {
	logger := logrus.New()
	logger.Out = os.Stderr
	e := &env{
		Engine: config.Engine{URL: config.DefaultEngineURL},
		Logger: logger,
	}
	app := newApp(e)
	if err := app.Run(os.Args); err != nil {
		logger.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Command failed")
	}
}
