package lod

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
)

// Term is one bound RDF term in a SPARQL JSON result.
type Term struct {
	Type     string
	Value    string
	Lang     string
	Datatype string
}

// Binding maps variable names to their bound terms for one solution.
type Binding map[string]Term

// SPARQL issues read-only queries against the server's endpoint.
type SPARQL struct {
	ex   exchanger
	path string
}

// Select runs a SELECT query and returns results.bindings.
func (s *SPARQL) Select(ctx context.Context, query string) ([]Binding, error) {
	if err := requireValue("query", query); err != nil {
		return nil, err
	}
	body, err := s.ex.do(ctx, httpclient.Request{
		Method:      http.MethodGet,
		Path:        s.path + "/select",
		Query:       httpclient.NewParams("query", query),
		ContentType: MimeSPARQLJSON,
	})
	if err != nil {
		return nil, err
	}
	return ParseBindings(body)
}

// ParseBindings extracts results.bindings from a SPARQL JSON result document.
func ParseBindings(doc []byte) ([]Binding, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("decode sparql results: invalid json")
	}
	raw := gjson.GetBytes(doc, "results.bindings")
	if !raw.IsArray() {
		return nil, fmt.Errorf("decode sparql results: results.bindings missing")
	}

	out := make([]Binding, 0, len(raw.Array()))
	raw.ForEach(func(_, solution gjson.Result) bool {
		b := Binding{}
		solution.ForEach(func(name, term gjson.Result) bool {
			b[name.String()] = Term{
				Type:     term.Get("type").String(),
				Value:    term.Get("value").String(),
				Lang:     term.Get("xml:lang").String(),
				Datatype: term.Get("datatype").String(),
			}
			return true
		})
		out = append(out, b)
		return true
	})
	return out, nil
}
