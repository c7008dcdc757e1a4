// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package enginetest

import (
	"regexp"
	"sort"
	"strings"

	"github.com/diffeo/go-camunda/restdata"
	"github.com/gorilla/mux"
)

// History variable instances:

func (e *Engine) populateHistory(r *mux.Router) {
	r.Path("/history/variable-instance").Handler(&resourceHandler{
		Engine: e,
		Get:    e.historyVariablesGet,
	})
	r.Path("/history/variable-instance/count").Handler(&resourceHandler{
		Engine: e,
		Get:    e.historyVariablesCount,
	})
}

type historyQuery struct {
	VariableName        string `schema:"variableName"`
	VariableNameLike    string `schema:"variableNameLike"`
	VariableNameIn      string `schema:"variableNameIn"`
	VariableTypeIn      string `schema:"variableTypeIn"`
	ProcessInstanceID   string `schema:"processInstanceId"`
	ProcessInstanceIDIn string `schema:"processInstanceIdIn"`
	ProcessDefinitionID string `schema:"processDefinitionId"`
	ExecutionIDIn       string `schema:"executionIdIn"`
	TaskIDIn            string `schema:"taskIdIn"`
	TenantIDIn          string `schema:"tenantIdIn"`
	WithoutTenantID     bool   `schema:"withoutTenantId"`
	IncludeDeleted      bool   `schema:"includeDeleted"`
	SortBy              string `schema:"sortBy"`
	SortOrder           string `schema:"sortOrder"`
	FirstResult         int    `schema:"firstResult"`
	MaxResults          *int   `schema:"maxResults"`
}

// likePattern converts an engine "like" pattern, where % matches
// anything, to a regular expression.
func likePattern(like string) *regexp.Regexp {
	parts := strings.Split(like, "%")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

func (q *historyQuery) matches(v *restdata.HistoryVariableInstance) bool {
	switch {
	case q.VariableName != "" && v.Name != q.VariableName,
		q.VariableNameLike != "" && !likePattern(q.VariableNameLike).MatchString(v.Name),
		q.VariableNameIn != "" && !contains(splitList(q.VariableNameIn), v.Name),
		q.VariableTypeIn != "" && !contains(splitList(strings.ToLower(q.VariableTypeIn)), strings.ToLower(v.Type)),
		q.ProcessInstanceID != "" && v.ProcessInstanceID != q.ProcessInstanceID,
		q.ProcessInstanceIDIn != "" && !contains(splitList(q.ProcessInstanceIDIn), v.ProcessInstanceID),
		q.ProcessDefinitionID != "" && v.ProcessDefinitionID != q.ProcessDefinitionID,
		q.ExecutionIDIn != "" && !contains(splitList(q.ExecutionIDIn), v.ExecutionID),
		q.TaskIDIn != "" && !contains(splitList(q.TaskIDIn), v.TaskID),
		q.TenantIDIn != "" && !contains(splitList(q.TenantIDIn), v.TenantID),
		q.WithoutTenantID && v.TenantID != "",
		!q.IncludeDeleted && v.State == "DELETED":
		return false
	}
	return true
}

var historyOrdering = ordering[*restdata.HistoryVariableInstance]{
	"instanceId":   func(a, b *restdata.HistoryVariableInstance) bool { return a.ProcessInstanceID < b.ProcessInstanceID },
	"variableName": func(a, b *restdata.HistoryVariableInstance) bool { return a.Name < b.Name },
	"tenantId":     func(a, b *restdata.HistoryVariableInstance) bool { return a.TenantID < b.TenantID },
}

func historyDocument(v *restdata.HistoryVariableInstance) map[string]interface{} {
	valueInfo := v.ValueInfo
	if valueInfo == nil {
		valueInfo = map[string]interface{}{}
	}
	return map[string]interface{}{
		"id":                    v.ID,
		"name":                  v.Name,
		"type":                  v.Type,
		"value":                 v.Value,
		"valueInfo":             valueInfo,
		"processDefinitionKey":  v.ProcessDefinitionKey,
		"processDefinitionId":   v.ProcessDefinitionID,
		"processInstanceId":     v.ProcessInstanceID,
		"executionId":           v.ExecutionID,
		"activityInstanceId":    v.ActivityInstanceID,
		"caseDefinitionKey":     nilIfEmpty(v.CaseDefinitionKey),
		"caseDefinitionId":      nilIfEmpty(v.CaseDefinitionID),
		"caseInstanceId":        nilIfEmpty(v.CaseInstanceID),
		"caseExecutionId":       nilIfEmpty(v.CaseExecutionID),
		"taskId":                nilIfEmpty(v.TaskID),
		"tenantId":              nilIfEmpty(v.TenantID),
		"errorMessage":          nilIfEmpty(v.ErrorMessage),
		"state":                 v.State,
		"createTime":            formatTime(v.CreateTime),
		"removalTime":           formatTime(v.RemovalTime),
		"rootProcessInstanceId": v.RootProcessInstanceID,
	}
}

func (e *Engine) queryHistory(c *call) ([]*restdata.HistoryVariableInstance, *historyQuery, error) {
	var q historyQuery
	if err := c.DecodeQuery(&q); err != nil {
		return nil, nil, err
	}
	var result []*restdata.HistoryVariableInstance
	for i := range e.history {
		if q.matches(&e.history[i]) {
			result = append(result, &e.history[i])
		}
	}
	if err := historyOrdering.apply(result, q.SortBy, q.SortOrder); err != nil {
		return nil, nil, err
	}
	return result, &q, nil
}

func (e *Engine) historyVariablesGet(c *call) (interface{}, error) {
	vars, q, err := e.queryHistory(c)
	if err != nil {
		return nil, err
	}
	docs := []map[string]interface{}{}
	for _, v := range page(vars, q.FirstResult, q.MaxResults) {
		docs = append(docs, historyDocument(v))
	}
	return docs, nil
}

func (e *Engine) historyVariablesCount(c *call) (interface{}, error) {
	vars, _, err := e.queryHistory(c)
	if err != nil {
		return nil, err
	}
	return restdata.Count{Count: int64(len(vars))}, nil
}

// Filters:

func (e *Engine) populateFilter(r *mux.Router) {
	r.Path("/filter").Handler(&resourceHandler{
		Engine: e,
		Get:    e.filtersGet,
	})
	r.Path("/filter/{id}").Handler(&resourceHandler{
		Engine: e,
		Get:    e.filterGet,
		Delete: e.filterDelete,
	})
}

type filterQuery struct {
	FilterID     string `schema:"filterId"`
	ResourceType string `schema:"resourceType"`
	Name         string `schema:"name"`
	NameLike     string `schema:"nameLike"`
	Owner        string `schema:"owner"`
	ItemCount    bool   `schema:"itemCount"`
	SortBy       string `schema:"sortBy"`
	SortOrder    string `schema:"sortOrder"`
	FirstResult  int    `schema:"firstResult"`
	MaxResults   *int   `schema:"maxResults"`
}

func (q *filterQuery) matches(f *restdata.Filter) bool {
	switch {
	case q.FilterID != "" && f.ID != q.FilterID,
		q.ResourceType != "" && f.ResourceType != q.ResourceType,
		q.Name != "" && f.Name != q.Name,
		q.NameLike != "" && !likePattern(q.NameLike).MatchString(f.Name),
		q.Owner != "" && f.Owner != q.Owner:
		return false
	}
	return true
}

var filterOrdering = ordering[*restdata.Filter]{
	"filterId":     func(a, b *restdata.Filter) bool { return a.ID < b.ID },
	"resourceType": func(a, b *restdata.Filter) bool { return a.ResourceType < b.ResourceType },
	"name":         func(a, b *restdata.Filter) bool { return a.Name < b.Name },
	"owner":        func(a, b *restdata.Filter) bool { return a.Owner < b.Owner },
}

// filterDocument renders a filter, including its item count only if
// asked.  A filter without a configured count has no items.
func filterDocument(f *restdata.Filter, itemCount bool) map[string]interface{} {
	doc := map[string]interface{}{
		"id":           f.ID,
		"resourceType": f.ResourceType,
		"name":         f.Name,
		"owner":        nilIfEmpty(f.Owner),
		"query":        f.Query,
		"properties":   f.Properties,
	}
	if doc["query"] == nil {
		doc["query"] = map[string]interface{}{}
	}
	if doc["properties"] == nil {
		doc["properties"] = map[string]interface{}{}
	}
	if itemCount {
		doc["itemCount"] = int64(0)
		if f.ItemCount != nil {
			doc["itemCount"] = *f.ItemCount
		}
	}
	return doc
}

func (e *Engine) filtersGet(c *call) (interface{}, error) {
	var q filterQuery
	if err := c.DecodeQuery(&q); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(e.filters))
	for id := range e.filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var filters []*restdata.Filter
	for _, id := range ids {
		f := e.filters[id]
		if q.matches(&f) {
			filters = append(filters, &f)
		}
	}
	if err := filterOrdering.apply(filters, q.SortBy, q.SortOrder); err != nil {
		return nil, err
	}
	docs := []map[string]interface{}{}
	for _, f := range page(filters, q.FirstResult, q.MaxResults) {
		docs = append(docs, filterDocument(f, q.ItemCount))
	}
	return docs, nil
}

func (e *Engine) filter(c *call) (restdata.Filter, error) {
	id := c.Vars["id"]
	f, ok := e.filters[id]
	if !ok {
		return f, notFound("Filter with id '%s' does not exist.", id)
	}
	return f, nil
}

func (e *Engine) filterGet(c *call) (interface{}, error) {
	f, err := e.filter(c)
	if err != nil {
		return nil, err
	}
	return filterDocument(&f, c.BoolParam("itemCount", false)), nil
}

func (e *Engine) filterDelete(c *call) (interface{}, error) {
	f, err := e.filter(c)
	if err != nil {
		return nil, err
	}
	delete(e.filters, f.ID)
	return nil, nil
}

// Process instances:

func (e *Engine) populateProcessInstance(r *mux.Router) {
	r.Path("/process-instance").Handler(&resourceHandler{
		Engine: e,
		Get:    e.processInstancesGet,
	})
	r.Path("/process-instance/count").Handler(&resourceHandler{
		Engine: e,
		Get:    e.processInstancesCount,
	})
	r.Path("/process-instance/{id}").Handler(&resourceHandler{
		Engine: e,
		Get:    e.processInstanceGet,
		Delete: e.processInstanceDelete,
	})
}

type processInstanceQuery struct {
	ProcessInstanceIDs  string `schema:"processInstanceIds"`
	BusinessKey         string `schema:"businessKey"`
	BusinessKeyLike     string `schema:"businessKeyLike"`
	ProcessDefinitionID string `schema:"processDefinitionId"`
	TenantIDIn          string `schema:"tenantIdIn"`
	WithoutTenantID     bool   `schema:"withoutTenantId"`
	Active              bool   `schema:"active"`
	Suspended           bool   `schema:"suspended"`
	SortBy              string `schema:"sortBy"`
	SortOrder           string `schema:"sortOrder"`
	FirstResult         int    `schema:"firstResult"`
	MaxResults          *int   `schema:"maxResults"`
}

func (q *processInstanceQuery) matches(p *restdata.ProcessInstance) bool {
	switch {
	case q.ProcessInstanceIDs != "" && !contains(splitList(q.ProcessInstanceIDs), p.ID),
		q.BusinessKey != "" && p.BusinessKey != q.BusinessKey,
		q.BusinessKeyLike != "" && !likePattern(q.BusinessKeyLike).MatchString(p.BusinessKey),
		q.ProcessDefinitionID != "" && p.DefinitionID != q.ProcessDefinitionID,
		q.TenantIDIn != "" && !contains(splitList(q.TenantIDIn), p.TenantID),
		q.WithoutTenantID && p.TenantID != "",
		q.Active && p.Suspended,
		q.Suspended && !p.Suspended:
		return false
	}
	return true
}

var processInstanceOrdering = ordering[*restdata.ProcessInstance]{
	"instanceId":   func(a, b *restdata.ProcessInstance) bool { return a.ID < b.ID },
	"definitionId": func(a, b *restdata.ProcessInstance) bool { return a.DefinitionID < b.DefinitionID },
	"businessKey":  func(a, b *restdata.ProcessInstance) bool { return a.BusinessKey < b.BusinessKey },
	"tenantId":     func(a, b *restdata.ProcessInstance) bool { return a.TenantID < b.TenantID },
}

func processInstanceDocument(p *restdata.ProcessInstance) map[string]interface{} {
	return map[string]interface{}{
		"id":             p.ID,
		"definitionId":   p.DefinitionID,
		"businessKey":    nilIfEmpty(p.BusinessKey),
		"caseInstanceId": nilIfEmpty(p.CaseInstanceID),
		"ended":          p.Ended,
		"suspended":      p.Suspended,
		"tenantId":       nilIfEmpty(p.TenantID),
	}
}

func (e *Engine) queryProcessInstances(c *call) ([]*restdata.ProcessInstance, *processInstanceQuery, error) {
	var q processInstanceQuery
	if err := c.DecodeQuery(&q); err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(e.instances))
	for id := range e.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var result []*restdata.ProcessInstance
	for _, id := range ids {
		p := e.instances[id]
		if q.matches(&p) {
			result = append(result, &p)
		}
	}
	if err := processInstanceOrdering.apply(result, q.SortBy, q.SortOrder); err != nil {
		return nil, nil, err
	}
	return result, &q, nil
}

func (e *Engine) processInstancesGet(c *call) (interface{}, error) {
	instances, q, err := e.queryProcessInstances(c)
	if err != nil {
		return nil, err
	}
	docs := []map[string]interface{}{}
	for _, p := range page(instances, q.FirstResult, q.MaxResults) {
		docs = append(docs, processInstanceDocument(p))
	}
	return docs, nil
}

func (e *Engine) processInstancesCount(c *call) (interface{}, error) {
	instances, _, err := e.queryProcessInstances(c)
	if err != nil {
		return nil, err
	}
	return restdata.Count{Count: int64(len(instances))}, nil
}

func (e *Engine) processInstanceGet(c *call) (interface{}, error) {
	id := c.Vars["id"]
	p, ok := e.instances[id]
	if !ok {
		return nil, notFound("Process instance with id %s does not exist", id)
	}
	return processInstanceDocument(&p), nil
}

func (e *Engine) processInstanceDelete(c *call) (interface{}, error) {
	id := c.Vars["id"]
	if _, ok := e.instances[id]; !ok {
		if c.BoolParam("failIfNotExists", true) {
			return nil, notFound("Process instance with id %s does not exist", id)
		}
		return nil, nil
	}
	delete(e.instances, id)
	return nil, nil
}
