// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"errors"
	"time"

	"github.com/diffeo/go-camunda/externaltask"
	"github.com/urfave/cli"
)

var externalTaskSortKeys = map[string]externaltask.SortKey{
	"id":                  externaltask.SortByID,
	"lockExpirationTime":  externaltask.SortByLockExpirationTime,
	"processInstanceId":   externaltask.SortByProcessInstanceID,
	"processDefinitionId": externaltask.SortByProcessDefinitionID,
	"tenantId":            externaltask.SortByTenantID,
	"taskPriority":        externaltask.SortByTaskPriority,
}

var externalTaskQueryFlags = []cli.Flag{
	cli.StringFlag{Name: "topic", Usage: "only tasks of this topic"},
	cli.StringFlag{Name: "worker-id", Usage: "only tasks locked by this worker"},
	cli.StringFlag{Name: "process-instance", Usage: "only tasks of this process instance"},
	cli.StringFlag{Name: "activity", Usage: "only tasks of this activity"},
	cli.StringSliceFlag{Name: "tenant", Usage: "only tasks of these tenants"},
	cli.BoolFlag{Name: "locked", Usage: "only locked tasks"},
	cli.BoolFlag{Name: "not-locked", Usage: "only unlocked tasks"},
	cli.BoolFlag{Name: "with-retries-left", Usage: "only tasks that can still be retried"},
	cli.BoolFlag{Name: "no-retries-left", Usage: "only tasks that have an incident"},
	cli.BoolFlag{Name: "suspended", Usage: "only suspended tasks"},
}

var workerIDFlag = cli.StringFlag{
	Name:  "worker-id",
	Usage: "ID of the worker holding the lock",
}

var variableFlag = cli.StringSliceFlag{
	Name:  "var",
	Usage: "set a string variable, as name=value",
}

func externalTaskQuery(c *cli.Context) (externaltask.ListQuery, error) {
	sortBy, err := sortKey(c, externalTaskSortKeys)
	return externaltask.ListQuery{
		TopicName:         c.String("topic"),
		WorkerID:          c.String("worker-id"),
		ProcessInstanceID: c.String("process-instance"),
		ActivityID:        c.String("activity"),
		TenantIDIn:        c.StringSlice("tenant"),
		Locked:            c.Bool("locked"),
		NotLocked:         c.Bool("not-locked"),
		WithRetriesLeft:   c.Bool("with-retries-left"),
		NoRetriesLeft:     c.Bool("no-retries-left"),
		Suspended:         c.Bool("suspended"),
		SortBy:            sortBy,
		Descending:        c.Bool("desc"),
		FirstResult:       optionalInt(c, "first"),
		MaxResults:        optionalInt(c, "max"),
	}, err
}

func (e *env) externalTaskCommand() cli.Command {
	return cli.Command{
		Name:  "external-task",
		Usage: "inspect and work on external tasks",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				Usage:     "show a single external task",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "task ID")
					if err != nil {
						return err
					}
					req, err := externaltask.Get(e.Engine.URL, id)
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					task, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, task)
				},
			},
			{
				Name:  "list",
				Usage: "list external tasks",
				Flags: concatFlags(externalTaskQueryFlags, sortFlags, pageFlags),
				Action: func(c *cli.Context) error {
					q, err := externalTaskQuery(c)
					if err != nil {
						return err
					}
					req, err := externaltask.GetList(e.Engine.URL, q)
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					tasks, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, tasks)
				},
			},
			{
				Name:  "count",
				Usage: "count external tasks",
				Flags: externalTaskQueryFlags,
				Action: func(c *cli.Context) error {
					q, err := externalTaskQuery(c)
					if err != nil {
						return err
					}
					req, err := externaltask.Count(e.Engine.URL, q)
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					count, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, map[string]int64{"count": count})
				},
			},
			{
				Name:  "fetch",
				Usage: "fetch and lock external tasks",
				Flags: []cli.Flag{
					workerIDFlag,
					cli.StringSliceFlag{Name: "topic", Usage: "fetch tasks of this topic"},
					cli.IntFlag{Name: "max-tasks", Value: 1, Usage: "fetch at most this many tasks"},
					cli.BoolFlag{Name: "use-priority", Usage: "fetch higher-priority tasks first"},
					cli.DurationFlag{Name: "lock-duration", Value: time.Minute, Usage: "lock fetched tasks for this long"},
					cli.StringSliceFlag{Name: "variables", Usage: "only fetch these variables"},
				},
				Action: func(c *cli.Context) error {
					topics := c.StringSlice("topic")
					if len(topics) == 0 {
						return errors.New("fetch requires at least one --topic")
					}
					req, err := externaltask.FetchAndLock(e.Engine.URL, c.String("worker-id"), c.Int("max-tasks"), c.Bool("use-priority"))
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					var opts []externaltask.TopicOption
					if c.IsSet("variables") {
						opts = append(opts, externaltask.WithVariables(c.StringSlice("variables")...))
					}
					lock := int64(c.Duration("lock-duration") / time.Millisecond)
					for _, topic := range topics {
						req.AddTopic(topic, lock, opts...)
					}
					tasks, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, tasks)
				},
			},
			{
				Name:      "complete",
				Usage:     "complete a locked external task",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{workerIDFlag, variableFlag},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "task ID")
					if err != nil {
						return err
					}
					variables, err := parseVariables(c.StringSlice("var"))
					if err != nil {
						return err
					}
					req, err := externaltask.Complete(e.Engine.URL, id, c.String("worker-id"))
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					for name, variable := range variables {
						req.AddVariable(name, variable)
					}
					return req.Send(context.Background())
				},
			},
			{
				Name:      "fail",
				Usage:     "report a failure on a locked external task",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					workerIDFlag,
					cli.StringFlag{Name: "message", Usage: "error message"},
					cli.StringFlag{Name: "details", Usage: "error details"},
					cli.IntFlag{Name: "retries", Usage: "retries left; 0 creates an incident"},
					cli.DurationFlag{Name: "retry-timeout", Usage: "wait this long before the task can be fetched again"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "task ID")
					if err != nil {
						return err
					}
					req, err := externaltask.HandleFailure(e.Engine.URL, id, c.String("worker-id"),
						c.String("message"), c.String("details"), c.Int("retries"),
						int64(c.Duration("retry-timeout")/time.Millisecond))
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					return req.Send(context.Background())
				},
			},
			{
				Name:      "bpmn-error",
				Usage:     "raise a BPMN error for a locked external task",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					workerIDFlag,
					variableFlag,
					cli.StringFlag{Name: "code", Usage: "BPMN error code"},
					cli.StringFlag{Name: "message", Usage: "error message"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "task ID")
					if err != nil {
						return err
					}
					variables, err := parseVariables(c.StringSlice("var"))
					if err != nil {
						return err
					}
					req, err := externaltask.HandleBPMNError(e.Engine.URL, id, c.String("worker-id"), c.String("code"), c.String("message"))
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					for name, variable := range variables {
						req.AddVariable(name, variable)
					}
					return req.Send(context.Background())
				},
			},
			{
				Name:      "unlock",
				Usage:     "release the lock on an external task",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "task ID")
					if err != nil {
						return err
					}
					req, err := externaltask.Unlock(e.Engine.URL, id)
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					return req.Send(context.Background())
				},
			},
			{
				Name:      "extend-lock",
				Usage:     "extend the lock on an external task",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					workerIDFlag,
					cli.DurationFlag{Name: "duration", Value: time.Minute, Usage: "new lock duration from now"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "task ID")
					if err != nil {
						return err
					}
					req, err := externaltask.ExtendLock(e.Engine.URL, id, c.String("worker-id"),
						int64(c.Duration("duration")/time.Millisecond))
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					return req.Send(context.Background())
				},
			},
		},
	}
}
