package discovery

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
)

type stubResponse struct {
	body   []byte
	status int
}

func (s stubResponse) Body() []byte           { return s.body }
func (s stubResponse) StatusCode() int        { return s.status }
func (s stubResponse) Header(_ string) string { return "" }

type stubClient struct {
	resp httpclient.Response
	err  error
}

func (s stubClient) Get(_ context.Context, _ string, _ map[string]string) (httpclient.Response, error) {
	return s.resp, s.err
}

func (s stubClient) Head(_ context.Context, _ string, _ map[string]string) (httpclient.Response, error) {
	return s.resp, s.err
}

const page = `
<html>
  <head>
    <link rel="stylesheet" href="/style.css" type="text/css">
    <link rel="alternate" type="application/rss+xml" href="/feed.xml">
    <link rel="alternate" type="text/turtle" href="/data/people.ttl" title=" People ">
    <link rel="meta alternate" type="application/rdf+xml; charset=utf-8" href="https://cdn.example.org/people.rdf">
    <link rel="alternate" type="text/turtle" href="/data/people.ttl">
    <link rel="alternate" type="application/ld+json">
  </head>
</html>`

func TestParseAlternatesFiltersAndResolves(t *testing.T) {
	alts, err := parseAlternates([]byte(page), "https://example.org/about/index.html")
	if err != nil {
		t.Fatalf("parseAlternates: %v", err)
	}
	if len(alts) != 2 {
		t.Fatalf("expected 2 alternates, got %d: %#v", len(alts), alts)
	}
	if alts[0].URL != "https://example.org/data/people.ttl" || alts[0].Type != "text/turtle" || alts[0].Title != "People" {
		t.Fatalf("unexpected first alternate %#v", alts[0])
	}
	if alts[1].URL != "https://cdn.example.org/people.rdf" || alts[1].Type != "application/rdf+xml" {
		t.Fatalf("unexpected second alternate %#v", alts[1])
	}
}

func TestIsRDFMimeType(t *testing.T) {
	for _, m := range []string{"text/turtle", "Application/RDF+XML", "application/ld+json; profile=x"} {
		if !IsRDFMimeType(m) {
			t.Fatalf("expected %q to be rdf", m)
		}
	}
	for _, m := range []string{"", "text/html", "application/json"} {
		if IsRDFMimeType(m) {
			t.Fatalf("expected %q not to be rdf", m)
		}
	}
}

func TestDiscoverRejectsNonOK(t *testing.T) {
	d := New(stubClient{resp: stubResponse{status: 404, body: []byte("missing")}})
	if _, err := d.Discover(context.Background(), "https://example.org"); err == nil {
		t.Fatalf("expected error on 404")
	}
}

func TestDiscoverPropagatesFetchError(t *testing.T) {
	boom := errors.New("dial failed")
	d := New(stubClient{err: boom})
	_, err := d.Discover(context.Background(), "https://example.org")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestDiscoverAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	alts, err := New(nil).Discover(context.Background(), srv.URL+"/about/")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(alts) != 2 || alts[0].URL != srv.URL+"/data/people.ttl" {
		t.Fatalf("unexpected alternates %#v", alts)
	}
}

func TestDiscoverRefusesOversizedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
		_, _ = w.Write(bytes.Repeat([]byte(" "), MaxPageBytes))
	}))
	defer srv.Close()

	_, err := New(nil).Discover(context.Background(), srv.URL+"/about/")
	if !errors.Is(err, resty.ErrResponseBodyTooLarge) {
		t.Fatalf("expected body limit error, got %v", err)
	}
}
