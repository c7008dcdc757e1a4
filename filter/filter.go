// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package filter manages the saved task queries ("filters") of a
// Camunda engine.
package filter

import (
	"context"

	"github.com/diffeo/go-camunda/param"
	"github.com/diffeo/go-camunda/restclient"
	"github.com/diffeo/go-camunda/restdata"
)

// Suffix is the path of the filter resource, relative to the engine
// URL.
const Suffix = "/filter"

// SortKey selects the property filters are sorted by.
type SortKey int

const (
	Unsorted SortKey = iota
	SortByID
	SortByResourceType
	SortByName
	SortByOwner
)

// ListQuery holds the filters of a filter query.
type ListQuery struct {
	ID           string
	ResourceType string
	Name         string
	NameLike     string
	Owner        string

	// ItemCount asks the engine to include the number of items
	// each filter matches.
	ItemCount bool

	SortBy     SortKey
	Descending bool

	FirstResult *int
	MaxResults  *int
}

var (
	idParam = &param.Descriptor{
		Name:     "id",
		Kind:     param.Path,
		Validate: param.Required,
	}
	itemCountParam = &param.Descriptor{
		Name:    "itemCount",
		Kind:    param.Query,
		Provide: param.IsTrue,
	}

	filterIDParam     = &param.Descriptor{Name: "filterId", Kind: param.Query}
	resourceTypeParam = &param.Descriptor{Name: "resourceType", Kind: param.Query}
	nameParam         = &param.Descriptor{Name: "name", Kind: param.Query}
	nameLikeParam     = &param.Descriptor{Name: "nameLike", Kind: param.Query}
	ownerParam        = &param.Descriptor{Name: "owner", Kind: param.Query}
	firstResultParam  = &param.Descriptor{Name: "firstResult", Kind: param.Query, Validate: param.NonNegative}
	maxResultsParam   = &param.Descriptor{Name: "maxResults", Kind: param.Query, Validate: param.NonNegative}
	sortByParam       = &param.Descriptor{
		Name: "sortBy",
		Kind: param.Query,
		Mapping: map[interface{}]interface{}{
			SortByID:           "filterId",
			SortByResourceType: "resourceType",
			SortByName:         "name",
			SortByOwner:        "owner",
		},
		Strict: true,
	}
	sortOrderParam = &param.Descriptor{
		Name:    "sortOrder",
		Kind:    param.Query,
		Mapping: map[interface{}]interface{}{false: "asc", true: "desc"},
		Provide: param.WhenBound(sortByParam),
	}

	deleteSchema = param.NewSchema(idParam)
	getSchema    = param.NewSchema(idParam, itemCountParam)
	listSchema   = param.NewSchema(
		filterIDParam, resourceTypeParam, nameParam, nameLikeParam,
		ownerParam, itemCountParam, sortByParam, sortOrderParam,
		firstResultParam, maxResultsParam,
	)
)

// DeleteRequest deletes a filter.
type DeleteRequest struct {
	*restclient.Request
}

// Delete creates a request deleting the filter with id.
func Delete(url, id string) (*DeleteRequest, error) {
	r, err := restclient.Build(url, Suffix+"/{id}", deleteSchema, func(b *param.Binder) {
		b.Bind(idParam, id)
	})
	if err != nil {
		return nil, err
	}
	return &DeleteRequest{r}, nil
}

// Send performs the request.
func (r *DeleteRequest) Send(ctx context.Context) error {
	return r.Delete(ctx)
}

// GetRequest retrieves a single filter.
type GetRequest struct {
	*restclient.Request
}

// Get creates a request for the filter with id.  If itemCount is
// true, the result includes the number of matching items.
func Get(url, id string, itemCount bool) (*GetRequest, error) {
	r, err := restclient.Build(url, Suffix+"/{id}", getSchema, func(b *param.Binder) {
		b.Bind(idParam, id).Flag(itemCountParam, itemCount)
	})
	if err != nil {
		return nil, err
	}
	return &GetRequest{r}, nil
}

// Send performs the request.
func (r *GetRequest) Send(ctx context.Context) (*restdata.Filter, error) {
	return restclient.GetOne(ctx, r.Request, restdata.LoadFilter)
}

// GetListRequest queries for filters.
type GetListRequest struct {
	*restclient.Request
}

// GetList creates a request for the filters matching q.
func GetList(url string, q ListQuery) (*GetListRequest, error) {
	r, err := restclient.Build(url, Suffix, listSchema, func(b *param.Binder) {
		b.String(filterIDParam, q.ID).
			String(resourceTypeParam, q.ResourceType).
			String(nameParam, q.Name).
			String(nameLikeParam, q.NameLike).
			String(ownerParam, q.Owner).
			Flag(itemCountParam, q.ItemCount).
			Flag(sortOrderParam, q.Descending).
			Int(firstResultParam, q.FirstResult).
			Int(maxResultsParam, q.MaxResults)
		if b.Err == nil {
			b.Err = param.BindNonZero(b.Set, sortByParam, q.SortBy)
		}
	})
	if err != nil {
		return nil, err
	}
	return &GetListRequest{r}, nil
}

// Send performs the request.
func (r *GetListRequest) Send(ctx context.Context) ([]restdata.Filter, error) {
	return restclient.GetList(ctx, r.Request, restdata.LoadFilter)
}
