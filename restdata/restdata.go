// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines the data structures exchanged with a
// Camunda BPM engine's REST API, and the functions that load them
// from decoded JSON.
//
// Records
//
// Each record is a flat projection of a JSON object.  Load functions
// such as LoadExternalTask take the decoded JSON object, a
// map[string]interface{}, and check that every required key is
// present, returning a MissingFieldError if not.  A required key may
// still carry a JSON null, in which case the field holds its zero
// value.  Optional keys may be absent entirely; optional fields are
// pointers or maps, and are nil when absent.  Loading is pure: the
// same input always produces the same record.
//
// Variables
//
// Process variables travel as objects of the shape
//
//     {"value": 42, "type": "Integer", "valueInfo": {}}
//
// and are represented by Variable.
//
// Timestamps
//
// The engine formats timestamps as "2013-01-23T13:42:42.000+0200";
// see TimeLayout.
package restdata

import (
	"time"
)

// JSONMediaType is the media type of all request and response bodies.
const JSONMediaType = "application/json"

// TimeLayout is the engine's default date format, for time.Parse and
// time.Format.
const TimeLayout = "2006-01-02T15:04:05.000-0700"

// Variable is a typed process variable.
type Variable struct {
	// Value holds the variable value, in whatever form JSON
	// decoding produced.
	Value interface{} `json:"value"`

	// Type names the engine value type, such as "String" or
	// "Integer".  If empty the engine infers it.
	Type string `json:"type,omitempty"`

	// ValueInfo holds type-specific details, such as the object
	// type name of a serialized Java object.
	ValueInfo map[string]interface{} `json:"valueInfo,omitempty"`
}

// ExternalTask is a unit of work fetched and completed by an external
// worker.
type ExternalTask struct {
	ActivityID           string     `json:"activityId"`
	ActivityInstanceID   string     `json:"activityInstanceId"`
	ErrorMessage         string     `json:"errorMessage"`
	ErrorDetails         string     `json:"errorDetails"`
	ExecutionID          string     `json:"executionId"`
	ID                   string     `json:"id"`
	LockExpirationTime   *time.Time `json:"lockExpirationTime"`
	ProcessDefinitionID  string     `json:"processDefinitionId"`
	ProcessDefinitionKey string     `json:"processDefinitionKey"`
	ProcessInstanceID    string     `json:"processInstanceId"`
	TenantID             string     `json:"tenantId"`

	// Retries is nil if the engine has never had a retry count
	// reported for the task.
	Retries *int `json:"retries"`

	WorkerID  string `json:"workerId"`
	Priority  int64  `json:"priority"`
	TopicName string `json:"topicName"`

	// Suspended, BusinessKey, and Variables are only returned by
	// some endpoints, and are nil if absent.
	Suspended   *bool               `json:"suspended"`
	BusinessKey *string             `json:"businessKey"`
	Variables   map[string]Variable `json:"variables"`
}

var externalTaskRequired = []string{
	"activityId", "activityInstanceId", "errorMessage", "errorDetails",
	"executionId", "id", "lockExpirationTime", "processDefinitionId",
	"processDefinitionKey", "processInstanceId", "tenantId", "retries",
	"workerId", "priority", "topicName",
}

// LoadExternalTask builds an ExternalTask from a decoded JSON object.
func LoadExternalTask(data map[string]interface{}) (ExternalTask, error) {
	var task ExternalTask
	err := load("ExternalTask", data, externalTaskRequired, &task)
	if err == nil {
		err = checkVariables(data["variables"])
	}
	return task, err
}

var variableRequired = []string{"type", "value", "valueInfo"}

// LoadVariable builds a Variable from a decoded JSON object.
func LoadVariable(data map[string]interface{}) (Variable, error) {
	var variable Variable
	err := load("Variable", data, variableRequired, &variable)
	return variable, err
}

// checkVariables verifies the required keys of every variable in a
// decoded "variables" object.
func checkVariables(raw interface{}) error {
	variables, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	for _, v := range variables {
		variable, _ := v.(map[string]interface{})
		if _, err := LoadVariable(variable); err != nil {
			return err
		}
	}
	return nil
}

// HistoryVariableInstance is a variable recorded in the engine's
// history.
type HistoryVariableInstance struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	Type                  string                 `json:"type"`
	Value                 interface{}            `json:"value"`
	ValueInfo             map[string]interface{} `json:"valueInfo"`
	ProcessDefinitionKey  string                 `json:"processDefinitionKey"`
	ProcessDefinitionID   string                 `json:"processDefinitionId"`
	ProcessInstanceID     string                 `json:"processInstanceId"`
	ExecutionID           string                 `json:"executionId"`
	ActivityInstanceID    string                 `json:"activityInstanceId"`
	CaseDefinitionKey     string                 `json:"caseDefinitionKey"`
	CaseDefinitionID      string                 `json:"caseDefinitionId"`
	CaseInstanceID        string                 `json:"caseInstanceId"`
	CaseExecutionID       string                 `json:"caseExecutionId"`
	TaskID                string                 `json:"taskId"`
	TenantID              string                 `json:"tenantId"`
	ErrorMessage          string                 `json:"errorMessage"`
	State                 string                 `json:"state"`
	RootProcessInstanceID string                 `json:"rootProcessInstanceId"`
	CreateTime            *time.Time             `json:"createTime"`
	RemovalTime           *time.Time             `json:"removalTime"`
}

var historyVariableInstanceRequired = []string{
	"id", "name", "type", "value", "valueInfo", "processDefinitionKey",
	"processDefinitionId", "processInstanceId", "executionId",
	"activityInstanceId", "caseDefinitionKey", "caseDefinitionId",
	"caseInstanceId", "caseExecutionId", "taskId", "tenantId",
	"errorMessage", "state", "createTime", "removalTime",
	"rootProcessInstanceId",
}

// LoadHistoryVariableInstance builds a HistoryVariableInstance from a
// decoded JSON object.
func LoadHistoryVariableInstance(data map[string]interface{}) (HistoryVariableInstance, error) {
	var instance HistoryVariableInstance
	err := load("HistoryVariableInstance", data, historyVariableInstanceRequired, &instance)
	return instance, err
}

// Filter is a saved task query.
type Filter struct {
	ID           string                 `json:"id"`
	ResourceType string                 `json:"resourceType"`
	Name         string                 `json:"name"`
	Owner        string                 `json:"owner"`
	Query        map[string]interface{} `json:"query"`
	Properties   map[string]interface{} `json:"properties"`

	// ItemCount is only returned when requested, and is nil
	// otherwise.
	ItemCount *int64 `json:"itemCount"`
}

var filterRequired = []string{
	"id", "resourceType", "name", "owner", "query", "properties",
}

// LoadFilter builds a Filter from a decoded JSON object.
func LoadFilter(data map[string]interface{}) (Filter, error) {
	var filter Filter
	err := load("Filter", data, filterRequired, &filter)
	return filter, err
}

// ProcessInstance is a running instance of a process definition.
type ProcessInstance struct {
	ID             string `json:"id"`
	DefinitionID   string `json:"definitionId"`
	BusinessKey    string `json:"businessKey"`
	CaseInstanceID string `json:"caseInstanceId"`
	Ended          bool   `json:"ended"`
	Suspended      bool   `json:"suspended"`
	TenantID       string `json:"tenantId"`
}

var processInstanceRequired = []string{
	"id", "definitionId", "businessKey", "caseInstanceId", "ended",
	"suspended", "tenantId",
}

// LoadProcessInstance builds a ProcessInstance from a decoded JSON
// object.
func LoadProcessInstance(data map[string]interface{}) (ProcessInstance, error) {
	var instance ProcessInstance
	err := load("ProcessInstance", data, processInstanceRequired, &instance)
	return instance, err
}

// Count is the response of the count endpoints.
type Count struct {
	Count int64 `json:"count"`
}

// LoadCount builds a Count from a decoded JSON object.
func LoadCount(data map[string]interface{}) (Count, error) {
	var count Count
	err := load("Count", data, []string{"count"}, &count)
	return count, err
}

// ErrorResponse is the body of most failing engine responses.
type ErrorResponse struct {
	// Type is the Java exception class name, such as
	// "InvalidRequestException".
	Type string `json:"type"`

	// Message is a human-readable description of the failure.
	Message string `json:"message"`
}
