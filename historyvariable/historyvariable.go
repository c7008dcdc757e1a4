// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package historyvariable queries the variable instances recorded in
// a Camunda engine's history.
package historyvariable

import (
	"context"
	"time"

	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
)

// Suffix is the path of the historic variable instance resource,
// relative to the engine URL.
const Suffix = "/history/variable-instance"

// DefaultTimeout bounds history queries, which can be slow on large
// histories.  Change it per request with WithTimeout.
const DefaultTimeout = 5 * time.Second

// SortKey selects the property results are sorted by.
type SortKey int

const (
	// Unsorted leaves the order up to the engine.
	Unsorted SortKey = iota
	SortByInstanceID
	SortByVariableName
	SortByTenantID
)

// Query holds the filters of a history variable query.  Zero values
// mean "do not filter".
type Query struct {
	VariableName     string
	VariableNameLike string
	VariableValue    string
	VariableNameIn   []string
	VariableTypeIn   []string

	// VariableNamesIgnoreCase and VariableValuesIgnoreCase make
	// the name and value filters case-insensitive.
	VariableNamesIgnoreCase  bool
	VariableValuesIgnoreCase bool

	// IncludeDeleted includes variables that have been deleted.
	IncludeDeleted bool

	ProcessInstanceID    string
	ProcessInstanceIDIn  []string
	ProcessDefinitionID  string
	ProcessDefinitionKey string
	ExecutionIDIn        []string
	CaseInstanceID       string
	CaseExecutionIDIn    []string
	CaseActivityIDIn     []string
	TaskIDIn             []string
	ActivityInstanceIDIn []string
	TenantIDIn           []string
	WithoutTenantID      bool

	// DeserializeValues, if set, says whether serialized object
	// values are deserialized by the engine.  The engine defaults
	// to true.
	DeserializeValues *bool

	SortBy     SortKey
	Descending bool

	FirstResult *int
	MaxResults  *int
}

var (
	variableNameParam       = &param.Descriptor{Name: "variableName", Kind: param.Query}
	variableNameLikeParam   = &param.Descriptor{Name: "variableNameLike", Kind: param.Query}
	variableValueParam      = &param.Descriptor{Name: "variableValue", Kind: param.Query}
	namesIgnoreCaseParam    = &param.Descriptor{Name: "variableNamesIgnoreCase", Kind: param.Query, Provide: param.IsTrue}
	valuesIgnoreCaseParam   = &param.Descriptor{Name: "variableValuesIgnoreCase", Kind: param.Query, Provide: param.IsTrue}
	variableTypeInParam     = &param.Descriptor{Name: "variableTypeIn", Kind: param.Query}
	includeDeletedParam     = &param.Descriptor{Name: "includeDeleted", Kind: param.Query, Provide: param.IsTrue}
	processInstanceIDParam  = &param.Descriptor{Name: "processInstanceId", Kind: param.Query}
	processInstanceInParam  = &param.Descriptor{Name: "processInstanceIdIn", Kind: param.Query}
	processDefIDParam       = &param.Descriptor{Name: "processDefinitionId", Kind: param.Query}
	processDefKeyParam      = &param.Descriptor{Name: "processDefinitionKey", Kind: param.Query}
	executionIDInParam      = &param.Descriptor{Name: "executionIdIn", Kind: param.Query}
	caseInstanceIDParam     = &param.Descriptor{Name: "caseInstanceId", Kind: param.Query}
	caseExecutionIDInParam  = &param.Descriptor{Name: "caseExecutionIdIn", Kind: param.Query}
	caseActivityIDInParam   = &param.Descriptor{Name: "caseActivityIdIn", Kind: param.Query}
	taskIDInParam           = &param.Descriptor{Name: "taskIdIn", Kind: param.Query}
	activityInstanceInParam = &param.Descriptor{Name: "activityInstanceIdIn", Kind: param.Query}
	tenantIDInParam         = &param.Descriptor{Name: "tenantIdIn", Kind: param.Query}
	withoutTenantIDParam    = &param.Descriptor{Name: "withoutTenantId", Kind: param.Query, Provide: param.IsTrue}
	variableNameInParam     = &param.Descriptor{Name: "variableNameIn", Kind: param.Query}
	firstResultParam        = &param.Descriptor{Name: "firstResult", Kind: param.Query, Validate: param.NonNegative}
	maxResultsParam         = &param.Descriptor{Name: "maxResults", Kind: param.Query, Validate: param.NonNegative}
	deserializeValuesParam  = &param.Descriptor{Name: "deserializeValues", Kind: param.Query}
	sortByParam             = &param.Descriptor{
		Name: "sortBy",
		Kind: param.Query,
		Mapping: map[interface{}]interface{}{
			SortByInstanceID:   "instanceId",
			SortByVariableName: "variableName",
			SortByTenantID:     "tenantId",
		},
		Strict: true,
	}
	sortOrderParam = &param.Descriptor{
		Name:    "sortOrder",
		Kind:    param.Query,
		Mapping: map[interface{}]interface{}{false: "asc", true: "desc"},
		Provide: param.WhenBound(sortByParam),
	}

	querySchema = param.NewSchema(
		variableNameParam, variableNameLikeParam, variableValueParam,
		namesIgnoreCaseParam, valuesIgnoreCaseParam, variableTypeInParam,
		includeDeletedParam, processInstanceIDParam, processInstanceInParam,
		processDefIDParam, processDefKeyParam, executionIDInParam,
		caseInstanceIDParam, caseExecutionIDInParam, caseActivityIDInParam,
		taskIDInParam, activityInstanceInParam, tenantIDInParam,
		withoutTenantIDParam, variableNameInParam, firstResultParam,
		maxResultsParam, deserializeValuesParam, sortByParam, sortOrderParam,
	)
)

func (q Query) bind(b *param.Binder) {
	b.String(variableNameParam, q.VariableName).
		String(variableNameLikeParam, q.VariableNameLike).
		String(variableValueParam, q.VariableValue).
		Flag(namesIgnoreCaseParam, q.VariableNamesIgnoreCase).
		Flag(valuesIgnoreCaseParam, q.VariableValuesIgnoreCase).
		Strings(variableTypeInParam, q.VariableTypeIn).
		Flag(includeDeletedParam, q.IncludeDeleted).
		String(processInstanceIDParam, q.ProcessInstanceID).
		Strings(processInstanceInParam, q.ProcessInstanceIDIn).
		String(processDefIDParam, q.ProcessDefinitionID).
		String(processDefKeyParam, q.ProcessDefinitionKey).
		Strings(executionIDInParam, q.ExecutionIDIn).
		String(caseInstanceIDParam, q.CaseInstanceID).
		Strings(caseExecutionIDInParam, q.CaseExecutionIDIn).
		Strings(caseActivityIDInParam, q.CaseActivityIDIn).
		Strings(taskIDInParam, q.TaskIDIn).
		Strings(activityInstanceInParam, q.ActivityInstanceIDIn).
		Strings(tenantIDInParam, q.TenantIDIn).
		Flag(withoutTenantIDParam, q.WithoutTenantID).
		Strings(variableNameInParam, q.VariableNameIn).
		Int(firstResultParam, q.FirstResult).
		Int(maxResultsParam, q.MaxResults).
		Bool(deserializeValuesParam, q.DeserializeValues).
		Flag(sortOrderParam, q.Descending)
	if b.Err == nil {
		b.Err = param.BindNonZero(b.Set, sortByParam, q.SortBy)
	}
}

// GetListRequest queries for historic variable instances.
type GetListRequest struct {
	*restclient.Request
}

// GetList creates a request for the historic variable instances
// matching q.  The request times out after DefaultTimeout.
func GetList(url string, q Query) (*GetListRequest, error) {
	r, err := restclient.Build(url, Suffix, querySchema, q.bind)
	if err != nil {
		return nil, err
	}
	r.Timeout = DefaultTimeout
	return &GetListRequest{r}, nil
}

// Send performs the request.
func (r *GetListRequest) Send(ctx context.Context) ([]restdata.HistoryVariableInstance, error) {
	return restclient.GetList(ctx, r.Request, restdata.LoadHistoryVariableInstance)
}

// CountRequest counts historic variable instances.
type CountRequest struct {
	*restclient.Request
}

// Count creates a request counting the historic variable instances
// matching q.  Sorting and paging fields of q are ignored.
func Count(url string, q Query) (*CountRequest, error) {
	q.SortBy = Unsorted
	q.FirstResult = nil
	q.MaxResults = nil
	r, err := restclient.Build(url, Suffix+"/count", querySchema, q.bind)
	if err != nil {
		return nil, err
	}
	r.Timeout = DefaultTimeout
	return &CountRequest{r}, nil
}

// Send performs the request.
func (r *CountRequest) Send(ctx context.Context) (int64, error) {
	return r.Count(ctx)
}
