package lod

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
)

// Known EDS types.
const (
	EDSTypeWebRDFFile   = "WebRDFFile"
	EDSTypeLocalRDFFile = "LocalRDFFile"
)

// EDSParams is the server-side record of one External Data Source.
type EDSParams struct {
	EDSType     string `json:"EDSType"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
	Context     string `json:"context"`
	TimeStamp   string `json:"timeStamp"`
}

// AddRequest describes a new source to register and import.
type AddRequest struct {
	EDSType  string
	URL      string
	MimeType string
	Context  string
}

// Validate checks the request before it is sent.
func (r AddRequest) Validate() error {
	if err := requireValue("EDSType", r.EDSType); err != nil {
		return err
	}
	if err := ValidateURL("url", r.URL); err != nil {
		return err
	}
	return ValidateURL("context", r.Context)
}

// EDS manages External Data Sources, each imported into its own named graph.
type EDS struct {
	ex   exchanger
	path string
}

// List returns all configured sources ordered by context.
func (e *EDS) List(ctx context.Context) ([]EDSParams, error) {
	body, err := e.ex.do(ctx, httpclient.Request{Method: http.MethodGet, Path: e.path + "/EDSParams"})
	if err != nil {
		return nil, err
	}
	var byContext map[string]EDSParams
	if err := json.Unmarshal(body, &byContext); err != nil {
		return nil, fmt.Errorf("decode eds list: %w", err)
	}
	keys := make([]string, 0, len(byContext))
	for k := range byContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]EDSParams, 0, len(keys))
	for _, k := range keys {
		p := byContext[k]
		if p.Context == "" {
			p.Context = k
		}
		out = append(out, p)
	}
	return out, nil
}

// Add registers a source and starts its import. The server answers as soon
// as the import task is running.
func (e *EDS) Add(ctx context.Context, req AddRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	body, err := e.ex.do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        e.path + "/EDSParams",
		Query:       httpclient.NewParams("EDSType", req.EDSType, "url", req.URL, "context", req.Context),
		ContentType: req.MimeType,
	})
	return string(body), err
}

// Update re-imports the source whose context is graph.
func (e *EDS) Update(ctx context.Context, graph string) (string, error) {
	if err := requireValue("context", graph); err != nil {
		return "", err
	}
	body, err := e.ex.do(ctx, httpclient.Request{
		Method: http.MethodPut,
		Path:   e.path + "/EDSParams",
		Query:  httpclient.NewParams("context", graph),
	})
	return string(body), err
}

// Delete removes the source whose context is graph, and the graph
// itself when deleteGraph is set.
func (e *EDS) Delete(ctx context.Context, graph string, deleteGraph bool) (string, error) {
	if err := requireValue("context", graph); err != nil {
		return "", err
	}
	body, err := e.ex.do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		Path:   e.path + "/EDSParams",
		Query:  httpclient.NewParams("context", graph, "deleteGraph", strconv.FormatBool(deleteGraph)),
	})
	return string(body), err
}

// CheckUpdates asks the server to probe every source. The body is returned
// unparsed.
func (e *EDS) CheckUpdates(ctx context.Context) ([]byte, error) {
	return e.ex.do(ctx, httpclient.Request{Method: http.MethodGet, Path: e.path + "/checkUpdates"})
}
