// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"

	"github.com/diffeo/go-camunda/filter"
	"github.com/diffeo/go-camunda/historyvariable"
	"github.com/diffeo/go-camunda/processinst"
	"github.com/urfave/cli"
)

var historySortKeys = map[string]historyvariable.SortKey{
	"instanceId":   historyvariable.SortByInstanceID,
	"variableName": historyvariable.SortByVariableName,
	"tenantId":     historyvariable.SortByTenantID,
}

var historyQueryFlags = []cli.Flag{
	cli.StringFlag{Name: "name", Usage: "only variables with this name"},
	cli.StringFlag{Name: "name-like", Usage: "only variables whose name matches this pattern, with % wildcards"},
	cli.StringFlag{Name: "value", Usage: "only variables with this value"},
	cli.StringSliceFlag{Name: "type", Usage: "only variables of these types"},
	cli.StringSliceFlag{Name: "process-instance", Usage: "only variables of these process instances"},
	cli.StringSliceFlag{Name: "tenant", Usage: "only variables of these tenants"},
	cli.BoolFlag{Name: "include-deleted", Usage: "include deleted variables"},
}

func historyQuery(c *cli.Context) (historyvariable.Query, error) {
	sortBy, err := sortKey(c, historySortKeys)
	return historyvariable.Query{
		VariableName:        c.String("name"),
		VariableNameLike:    c.String("name-like"),
		VariableValue:       c.String("value"),
		VariableTypeIn:      c.StringSlice("type"),
		ProcessInstanceIDIn: c.StringSlice("process-instance"),
		TenantIDIn:          c.StringSlice("tenant"),
		IncludeDeleted:      c.Bool("include-deleted"),
		SortBy:              sortBy,
		Descending:          c.Bool("desc"),
		FirstResult:         optionalInt(c, "first"),
		MaxResults:          optionalInt(c, "max"),
	}, err
}

func (e *env) historyCommand() cli.Command {
	return cli.Command{
		Name:  "history",
		Usage: "query the engine history",
		Subcommands: []cli.Command{
			{
				Name:  "variables",
				Usage: "list historic variable instances",
				Flags: concatFlags(historyQueryFlags, sortFlags, pageFlags),
				Action: func(c *cli.Context) error {
					q, err := historyQuery(c)
					if err != nil {
						return err
					}
					req, err := historyvariable.GetList(e.Engine.URL, q)
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					vars, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, vars)
				},
			},
			{
				Name:  "count-variables",
				Usage: "count historic variable instances",
				Flags: historyQueryFlags,
				Action: func(c *cli.Context) error {
					q, err := historyQuery(c)
					if err != nil {
						return err
					}
					req, err := historyvariable.Count(e.Engine.URL, q)
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
		},
	}
}

var filterSortKeys = map[string]filter.SortKey{
	"filterId":     filter.SortByID,
	"resourceType": filter.SortByResourceType,
	"name":         filter.SortByName,
	"owner":        filter.SortByOwner,
}

func (e *env) filterCommand() cli.Command {
	itemCountFlag := cli.BoolFlag{Name: "item-count", Usage: "include the number of matching items"}
	return cli.Command{
		Name:  "filter",
		Usage: "manage saved task filters",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				Usage:     "show a single filter",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{itemCountFlag},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "filter ID")
					if err != nil {
						return err
					}
					req, err := filter.Get(e.Engine.URL, id, c.Bool("item-count"))
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					f, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, f)
				},
			},
			{
				Name:  "list",
				Usage: "list filters",
				Flags: concatFlags([]cli.Flag{
					itemCountFlag,
					cli.StringFlag{Name: "resource-type", Usage: "only filters of this resource type"},
					cli.StringFlag{Name: "name-like", Usage: "only filters whose name matches this pattern"},
					cli.StringFlag{Name: "owner", Usage: "only filters owned by this user"},
				}, sortFlags, pageFlags),
				Action: func(c *cli.Context) error {
					sortBy, err := sortKey(c, filterSortKeys)
					if err != nil {
						return err
					}
					req, err := filter.GetList(e.Engine.URL, filter.ListQuery{
						ResourceType: c.String("resource-type"),
						NameLike:     c.String("name-like"),
						Owner:        c.String("owner"),
						ItemCount:    c.Bool("item-count"),
						SortBy:       sortBy,
						Descending:   c.Bool("desc"),
						FirstResult:  optionalInt(c, "first"),
						MaxResults:   optionalInt(c, "max"),
					})
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					filters, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, filters)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a filter",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "filter ID")
					if err != nil {
						return err
					}
					req, err := filter.Delete(e.Engine.URL, id)
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

var processInstanceSortKeys = map[string]processinst.SortKey{
	"instanceId":   processinst.SortByInstanceID,
	"definitionId": processinst.SortByDefinitionID,
	"businessKey":  processinst.SortByBusinessKey,
	"tenantId":     processinst.SortByTenantID,
}

func (e *env) processInstanceCommand() cli.Command {
	return cli.Command{
		Name:  "process-instance",
		Usage: "inspect and delete process instances",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				Usage:     "show a single process instance",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "process instance ID")
					if err != nil {
						return err
					}
					req, err := processinst.Get(e.Engine.URL, id)
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					p, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, p)
				},
			},
			{
				Name:  "list",
				Usage: "list process instances",
				Flags: concatFlags([]cli.Flag{
					cli.StringFlag{Name: "business-key", Usage: "only instances with this business key"},
					cli.StringFlag{Name: "definition", Usage: "only instances of this process definition ID"},
					cli.StringSliceFlag{Name: "tenant", Usage: "only instances of these tenants"},
					cli.BoolFlag{Name: "active", Usage: "only active instances"},
					cli.BoolFlag{Name: "suspended", Usage: "only suspended instances"},
				}, sortFlags, pageFlags),
				Action: func(c *cli.Context) error {
					sortBy, err := sortKey(c, processInstanceSortKeys)
					if err != nil {
						return err
					}
					req, err := processinst.GetList(e.Engine.URL, processinst.ListQuery{
						BusinessKey:         c.String("business-key"),
						ProcessDefinitionID: c.String("definition"),
						TenantIDIn:          c.StringSlice("tenant"),
						Active:              c.Bool("active"),
						Suspended:           c.Bool("suspended"),
						SortBy:              sortBy,
						Descending:          c.Bool("desc"),
						FirstResult:         optionalInt(c, "first"),
						MaxResults:          optionalInt(c, "max"),
					})
					if err != nil {
						return err
					}
					e.prepare(req.Request)
					instances, err := req.Send(context.Background())
					if err != nil {
						return err
					}
					return e.print(c, instances)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a process instance",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					cli.BoolFlag{Name: "skip-custom-listeners", Usage: "do not run custom listeners"},
					cli.BoolFlag{Name: "skip-io-mappings", Usage: "do not run input/output mappings"},
					cli.BoolFlag{Name: "skip-subprocesses", Usage: "do not delete subprocesses"},
					cli.BoolFlag{Name: "allow-missing", Usage: "succeed if the instance does not exist"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "process instance ID")
					if err != nil {
						return err
					}
					req, err := processinst.Delete(e.Engine.URL, id, processinst.DeleteOptions{
						SkipCustomListeners: c.Bool("skip-custom-listeners"),
						SkipIoMappings:      c.Bool("skip-io-mappings"),
						SkipSubprocesses:    c.Bool("skip-subprocesses"),
						AllowMissing:        c.Bool("allow-missing"),
					})
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
