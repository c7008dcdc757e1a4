// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package processinst

import (
	"context"

	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
)

// SortKey selects the property process instances are sorted by.
type SortKey int

const (
	Unsorted SortKey = iota
	SortByInstanceID
	SortByDefinitionID
	SortByBusinessKey
	SortByTenantID
)

// ListQuery holds the filters of a process instance query.
type ListQuery struct {
	ProcessInstanceIDs   []string
	BusinessKey          string
	BusinessKeyLike      string
	ProcessDefinitionID  string
	ProcessDefinitionKey string
	TenantIDIn           []string
	WithoutTenantID      bool

	// Active and Suspended restrict the result to instances in
	// that state.  Setting both matches nothing.
	Active    bool
	Suspended bool

	SortBy     SortKey
	Descending bool

	FirstResult *int
	MaxResults  *int
}

var (
	instanceIDsParam     = &param.Descriptor{Name: "processInstanceIds", Kind: param.Query}
	businessKeyParam     = &param.Descriptor{Name: "businessKey", Kind: param.Query}
	businessKeyLikeParam = &param.Descriptor{Name: "businessKeyLike", Kind: param.Query}
	definitionIDParam    = &param.Descriptor{Name: "processDefinitionId", Kind: param.Query}
	definitionKeyParam   = &param.Descriptor{Name: "processDefinitionKey", Kind: param.Query}
	tenantIDInParam      = &param.Descriptor{Name: "tenantIdIn", Kind: param.Query}
	withoutTenantParam   = &param.Descriptor{Name: "withoutTenantId", Kind: param.Query, Provide: param.IsTrue}
	activeParam          = &param.Descriptor{Name: "active", Kind: param.Query, Provide: param.IsTrue}
	suspendedParam       = &param.Descriptor{Name: "suspended", Kind: param.Query, Provide: param.IsTrue}
	firstResultParam     = &param.Descriptor{Name: "firstResult", Kind: param.Query, Validate: param.NonNegative}
	maxResultsParam      = &param.Descriptor{Name: "maxResults", Kind: param.Query, Validate: param.NonNegative}
	sortByParam          = &param.Descriptor{
		Name: "sortBy",
		Kind: param.Query,
		Mapping: map[interface{}]interface{}{
			SortByInstanceID:   "instanceId",
			SortByDefinitionID: "definitionId",
			SortByBusinessKey:  "businessKey",
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

	listSchema = param.NewSchema(
		instanceIDsParam, businessKeyParam, businessKeyLikeParam,
		definitionIDParam, definitionKeyParam, tenantIDInParam,
		withoutTenantParam, activeParam, suspendedParam, sortByParam,
		sortOrderParam, firstResultParam, maxResultsParam,
	)
)

func (q ListQuery) bind(b *param.Binder) {
	b.Strings(instanceIDsParam, q.ProcessInstanceIDs).
		String(businessKeyParam, q.BusinessKey).
		String(businessKeyLikeParam, q.BusinessKeyLike).
		String(definitionIDParam, q.ProcessDefinitionID).
		String(definitionKeyParam, q.ProcessDefinitionKey).
		Strings(tenantIDInParam, q.TenantIDIn).
		Flag(withoutTenantParam, q.WithoutTenantID).
		Flag(activeParam, q.Active).
		Flag(suspendedParam, q.Suspended).
		Flag(sortOrderParam, q.Descending).
		Int(firstResultParam, q.FirstResult).
		Int(maxResultsParam, q.MaxResults)
	if b.Err == nil {
		b.Err = param.BindNonZero(b.Set, sortByParam, q.SortBy)
	}
}

// GetListRequest queries for process instances.
type GetListRequest struct {
	*restclient.Request
}

// GetList creates a request for the process instances matching q.
func GetList(url string, q ListQuery) (*GetListRequest, error) {
	r, err := restclient.Build(url, Suffix, listSchema, q.bind)
	if err != nil {
		return nil, err
	}
	return &GetListRequest{r}, nil
}

// Send performs the request.
func (r *GetListRequest) Send(ctx context.Context) ([]restdata.ProcessInstance, error) {
	return restclient.GetList(ctx, r.Request, restdata.LoadProcessInstance)
}

// CountRequest counts process instances.
type CountRequest struct {
	*restclient.Request
}

// Count creates a request counting the process instances matching q.
// Sorting and paging fields of q are ignored.
func Count(url string, q ListQuery) (*CountRequest, error) {
	q.SortBy = Unsorted
	q.FirstResult = nil
	q.MaxResults = nil
	r, err := restclient.Build(url, Suffix+"/count", listSchema, q.bind)
	if err != nil {
		return nil, err
	}
	return &CountRequest{r}, nil
}

// Send performs the request.
func (r *CountRequest) Send(ctx context.Context) (int64, error) {
	return r.Count(ctx)
}
