// Package discovery finds RDF representations advertised by an HTML page
// through <link rel="alternate"> elements.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
)

// MaxPageBytes bounds the HTML read by the default client.
const MaxPageBytes = 1 << 20

// RDFMimeTypes lists the serializations a source can be imported as.
var RDFMimeTypes = []string{
	"application/rdf+xml",
	"text/turtle",
	"application/ld+json",
	"application/n-triples",
	"text/n3",
	"application/trig",
}

// Alternate is one advertised RDF representation.
type Alternate struct {
	URL   string
	Type  string
	Title string
}

// Discoverer fetches pages and extracts their RDF alternates.
type Discoverer struct {
	client httpclient.Client
}

// New builds a Discoverer. A nil client falls back to a resty client
// refusing pages over MaxPageBytes.
func New(client httpclient.Client) *Discoverer {
	if client == nil {
		client = httpclient.NewRestyClient(0).WithBodyLimit(MaxPageBytes)
	}
	return &Discoverer{client: client}
}

// Discover fetches pageURL and returns its RDF alternates in document order.
func (d *Discoverer) Discover(ctx context.Context, pageURL string) ([]Alternate, error) {
	resp, err := d.client.Get(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return nil, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	return parseAlternates(resp.Body(), pageURL)
}

// IsRDFMimeType reports whether mime (parameters ignored) is a known RDF serialization.
func IsRDFMimeType(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	for _, m := range RDFMimeTypes {
		if m == mime {
			return true
		}
	}
	return false
}

func parseAlternates(body []byte, base string) ([]Alternate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []Alternate
	seen := map[string]bool{}
	doc.Find(`link[rel~="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !IsRDFMimeType(typ) {
			return
		}
		href, _ := s.Attr("href")
		abs := resolveURL(href, base)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		title, _ := s.Attr("title")
		out = append(out, Alternate{
			URL:   abs,
			Type:  strings.ToLower(strings.TrimSpace(strings.SplitN(typ, ";", 2)[0])),
			Title: strings.TrimSpace(title),
		})
	})
	return out, nil
}

func resolveURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref.String()
	}
	return baseURL.ResolveReference(ref).String()
}
