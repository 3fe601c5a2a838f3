package lod

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
)

// Result formats a DataView can be rendered in.
const (
	MimeSPARQLJSON = "application/sparql-results+json"
	MimeSPARQLXML  = "application/sparql-results+xml"
	MimeCSV        = "text/csv"
	MimeText       = "text/plain; charset=utf8"
)

// viewArgPrefix marks query params the server substitutes into a view's query.
const viewArgPrefix = "p_"

// DataViews manages named, server-stored SPARQL queries.
type DataViews struct {
	ex   exchanger
	path string
}

// Hello calls the server's echo endpoint.
func (d *DataViews) Hello(ctx context.Context, name string) (string, error) {
	body, err := d.ex.do(ctx, httpclient.Request{
		Method:      http.MethodGet,
		Path:        d.path + "/hello",
		Query:       httpclient.NewParams("name", name),
		ContentType: MimeText,
	})
	return string(body), err
}

// Get executes the view and returns the result in mime (sent as Accept).
// args are substituted into the stored query; keys missing the "p_" prefix
// get it added.
func (d *DataViews) Get(ctx context.Context, view, mime string, args httpclient.Params) ([]byte, error) {
	if err := requireValue("viewName", view); err != nil {
		return nil, err
	}
	q := httpclient.NewParams("viewName", view)
	for _, a := range args {
		key := a.Key
		if !strings.HasPrefix(key, viewArgPrefix) {
			key = viewArgPrefix + key
		}
		q = q.Add(key, a.Value)
	}
	return d.ex.do(ctx, httpclient.Request{
		Method:      http.MethodGet,
		Path:        d.path,
		Query:       q,
		ContentType: mime,
	})
}

// List returns the names of all stored views.
func (d *DataViews) List(ctx context.Context) ([]string, error) {
	body, err := d.ex.do(ctx, httpclient.Request{Method: http.MethodGet, Path: d.path + "/list"})
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("decode data view list: %w", err)
	}
	return names, nil
}

// Query returns the SPARQL text stored for view.
func (d *DataViews) Query(ctx context.Context, view string) (string, error) {
	if err := requireValue("viewName", view); err != nil {
		return "", err
	}
	body, err := d.ex.do(ctx, httpclient.Request{
		Method:      http.MethodGet,
		Path:        d.path + "/query",
		Query:       httpclient.NewParams("viewName", view),
		ContentType: MimeText,
	})
	return string(body), err
}

// Add stores a new view.
func (d *DataViews) Add(ctx context.Context, view, query string) (string, error) {
	return d.write(ctx, http.MethodPost, view, query)
}

// Update replaces the query of an existing view.
func (d *DataViews) Update(ctx context.Context, view, query string) (string, error) {
	return d.write(ctx, http.MethodPut, view, query)
}

// Delete removes a view.
func (d *DataViews) Delete(ctx context.Context, view string) (string, error) {
	if err := requireValue("viewName", view); err != nil {
		return "", err
	}
	body, err := d.ex.do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		Path:   d.path,
		Query:  httpclient.NewParams("viewName", view),
	})
	return string(body), err
}

func (d *DataViews) write(ctx context.Context, method, view, query string) (string, error) {
	if err := requireValue("viewName", view); err != nil {
		return "", err
	}
	if err := requireValue("query", query); err != nil {
		return "", err
	}
	body, err := d.ex.do(ctx, httpclient.Request{
		Method: method,
		Path:   d.path,
		Query:  httpclient.NewParams("viewName", view, "query", query),
	})
	return string(body), err
}
