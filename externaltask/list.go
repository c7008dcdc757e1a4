// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package externaltask

import (
	"context"
	"time"

	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
)

// SortKey selects the property external task lists are sorted by.
type SortKey int

const (
	// Unsorted leaves the order up to the engine.
	Unsorted SortKey = iota
	SortByID
	SortByLockExpirationTime
	SortByProcessInstanceID
	SortByProcessDefinitionID
	SortByTenantID
	SortByTaskPriority
)

// ListQuery holds the filters shared by GetList and Count.  Zero
// values mean "do not filter".  Boolean filters are only sent when
// true.
type ListQuery struct {
	ID                   string
	TopicName            string
	WorkerID             string
	Locked               bool
	NotLocked            bool
	WithRetriesLeft      bool
	NoRetriesLeft        bool
	LockExpirationAfter  time.Time
	LockExpirationBefore time.Time
	ActivityID           string
	ActivityIDIn         []string
	ExecutionID          string
	ProcessInstanceID    string
	ProcessDefinitionID  string
	TenantIDIn           []string
	Active               bool
	Suspended            bool

	PriorityHigherThanOrEquals *int64
	PriorityLowerThanOrEquals  *int64

	// SortBy and Descending order the result.  Descending is
	// ignored unless SortBy is set.
	SortBy     SortKey
	Descending bool

	// FirstResult and MaxResults page through the result.
	FirstResult *int
	MaxResults  *int
}

var (
	externalTaskIDParam = &param.Descriptor{Name: "externalTaskId", Kind: param.Query}
	topicNameParam      = &param.Descriptor{Name: "topicName", Kind: param.Query}
	workerIDQueryParam  = &param.Descriptor{Name: "workerId", Kind: param.Query}
	lockedParam         = &param.Descriptor{Name: "locked", Kind: param.Query, Provide: param.IsTrue}
	notLockedParam      = &param.Descriptor{Name: "notLocked", Kind: param.Query, Provide: param.IsTrue}
	withRetriesParam    = &param.Descriptor{Name: "withRetriesLeft", Kind: param.Query, Provide: param.IsTrue}
	noRetriesParam      = &param.Descriptor{Name: "noRetriesLeft", Kind: param.Query, Provide: param.IsTrue}
	lockAfterParam      = &param.Descriptor{Name: "lockExpirationAfter", Kind: param.Query}
	lockBeforeParam     = &param.Descriptor{Name: "lockExpirationBefore", Kind: param.Query}
	activityIDParam     = &param.Descriptor{Name: "activityId", Kind: param.Query}
	activityIDInParam   = &param.Descriptor{Name: "activityIdIn", Kind: param.Query}
	executionIDParam    = &param.Descriptor{Name: "executionId", Kind: param.Query}
	processInstParam    = &param.Descriptor{Name: "processInstanceId", Kind: param.Query}
	processDefParam     = &param.Descriptor{Name: "processDefinitionId", Kind: param.Query}
	tenantIDInParam     = &param.Descriptor{Name: "tenantIdIn", Kind: param.Query}
	activeParam         = &param.Descriptor{Name: "active", Kind: param.Query, Provide: param.IsTrue}
	priorityHighParam   = &param.Descriptor{Name: "priorityHigherThanOrEquals", Kind: param.Query}
	priorityLowParam    = &param.Descriptor{Name: "priorityLowerThanOrEquals", Kind: param.Query}
	suspendedParam      = &param.Descriptor{Name: "suspended", Kind: param.Query, Provide: param.IsTrue}
	sortByParam         = &param.Descriptor{
		Name: "sortBy",
		Kind: param.Query,
		Mapping: map[interface{}]interface{}{
			SortByID:                  "id",
			SortByLockExpirationTime:  "lockExpirationTime",
			SortByProcessInstanceID:   "processInstanceId",
			SortByProcessDefinitionID: "processDefinitionId",
			SortByTenantID:            "tenantId",
			SortByTaskPriority:        "taskPriority",
		},
		Strict: true,
	}
	sortOrderParam = &param.Descriptor{
		Name:    "sortOrder",
		Kind:    param.Query,
		Mapping: map[interface{}]interface{}{false: "asc", true: "desc"},
		Provide: param.WhenBound(sortByParam),
	}
	firstResultParam = &param.Descriptor{Name: "firstResult", Kind: param.Query, Validate: param.NonNegative}
	maxResultsParam  = &param.Descriptor{Name: "maxResults", Kind: param.Query, Validate: param.NonNegative}

	listSchema = param.NewSchema(
		externalTaskIDParam, topicNameParam, workerIDQueryParam,
		lockedParam, notLockedParam, withRetriesParam, noRetriesParam,
		lockAfterParam, lockBeforeParam, activityIDParam,
		activityIDInParam, executionIDParam, processInstParam,
		processDefParam, tenantIDInParam, activeParam,
		priorityHighParam, priorityLowParam, suspendedParam,
		sortByParam, sortOrderParam, firstResultParam, maxResultsParam,
	)
)

// bind applies the query to a request's parameters.
func (q ListQuery) bind(b *param.Binder) {
	b.String(externalTaskIDParam, q.ID).
		String(topicNameParam, q.TopicName).
		String(workerIDQueryParam, q.WorkerID).
		Flag(lockedParam, q.Locked).
		Flag(notLockedParam, q.NotLocked).
		Flag(withRetriesParam, q.WithRetriesLeft).
		Flag(noRetriesParam, q.NoRetriesLeft).
		Time(lockAfterParam, q.LockExpirationAfter).
		Time(lockBeforeParam, q.LockExpirationBefore).
		String(activityIDParam, q.ActivityID).
		Strings(activityIDInParam, q.ActivityIDIn).
		String(executionIDParam, q.ExecutionID).
		String(processInstParam, q.ProcessInstanceID).
		String(processDefParam, q.ProcessDefinitionID).
		Strings(tenantIDInParam, q.TenantIDIn).
		Flag(activeParam, q.Active).
		Int64(priorityHighParam, q.PriorityHigherThanOrEquals).
		Int64(priorityLowParam, q.PriorityLowerThanOrEquals).
		Flag(suspendedParam, q.Suspended).
		Flag(sortOrderParam, q.Descending).
		Int(firstResultParam, q.FirstResult).
		Int(maxResultsParam, q.MaxResults)
	if b.Err == nil {
		b.Err = param.BindNonZero(b.Set, sortByParam, q.SortBy)
	}
}

// GetListRequest queries for external tasks.
type GetListRequest struct {
	*restclient.Request
}

// GetList creates a request for the external tasks matching q.
func GetList(url string, q ListQuery) (*GetListRequest, error) {
	r, err := restclient.Build(url, Suffix, listSchema, q.bind)
	if err != nil {
		return nil, err
	}
	return &GetListRequest{r}, nil
}

// Send performs the request.  The result is empty, not nil, if no
// tasks match.
func (r *GetListRequest) Send(ctx context.Context) ([]restdata.ExternalTask, error) {
	return restclient.GetList(ctx, r.Request, restdata.LoadExternalTask)
}

// CountRequest counts the external tasks a GetList request would
// return.
type CountRequest struct {
	*restclient.Request
}

// Count creates a request counting the external tasks matching q.
// Sorting and paging do not apply to counts and are dropped.
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
