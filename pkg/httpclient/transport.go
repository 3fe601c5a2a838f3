package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultMimeType is used for Accept/Content-Type when a request leaves it empty.
const DefaultMimeType = "application/json"

// Request describes a single exchange with the server. It is built fresh per
// call and never reused.
type Request struct {
	Method      string
	Path        string
	Query       Params
	Body        []byte
	ContentType string
	// Header holds extra request headers. Accept and Content-Type are
	// derived from ContentType and win over entries here.
	Header map[string]string
}

// Transport sends Requests relative to a base URL and dispatches completed
// responses through Routes. A Transport holds no per-request state and is
// safe for concurrent use.
type Transport struct {
	baseURL string
	client  *resty.Client
	legacy  bool
	metrics *Metrics
	log     Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithTimeout bounds every request made by the transport.
func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *Transport) {
		if timeout > 0 {
			t.client.SetTimeout(timeout)
		}
	}
}

// WithBasicAuth sends HTTP basic credentials on every request.
func WithBasicAuth(user, password string) TransportOption {
	return func(t *Transport) {
		if strings.TrimSpace(user) != "" {
			t.client.SetBasicAuth(user, password)
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) TransportOption {
	return func(t *Transport) {
		if ua = strings.TrimSpace(ua); ua != "" {
			t.client.SetHeader("User-Agent", ua)
		}
	}
}

// WithLegacyQuery disables query value encoding. See BuildQuery.
func WithLegacyQuery() TransportOption {
	return func(t *Transport) { t.legacy = true }
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *Metrics) TransportOption {
	return func(t *Transport) { t.metrics = m }
}

// WithLogger attaches a debug logger.
func WithLogger(log Logger) TransportOption {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// WithRestyClient replaces the underlying resty client. Options applied after
// it act on the replacement.
func WithRestyClient(c *resty.Client) TransportOption {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// NewTransport builds a Transport for baseURL. A single trailing slash is trimmed.
func NewTransport(baseURL string, opts ...TransportOption) (*Transport, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("base url must be defined")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	t := &Transport{
		baseURL: baseURL,
		client:  newRestyBaseClient(0),
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// BaseURL returns the normalized base URL.
func (t *Transport) BaseURL() string { return t.baseURL }

// URL returns the absolute URL a request would be sent to.
func (t *Transport) URL(req Request) string {
	return t.baseURL + req.Path + BuildQuery(req.Query, t.legacy)
}

// Do sends req and hands the response to routes. Network failures are
// returned as-is; otherwise the result of routes.Dispatch is returned.
func (t *Transport) Do(ctx context.Context, req Request, routes *Routes) error {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	mime := strings.TrimSpace(req.ContentType)
	if mime == "" {
		mime = DefaultMimeType
	}

	r := t.client.R().SetContext(ctx)
	if len(req.Header) > 0 {
		r.SetHeaders(req.Header)
	}
	switch method {
	case http.MethodPost, http.MethodPut:
		r.SetHeader("Content-Type", mime)
	case http.MethodGet:
		r.SetHeader("Accept", mime)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	target := t.URL(req)
	start := time.Now()
	resp, err := r.Execute(method, target)
	elapsed := time.Since(start)
	if err != nil {
		t.metrics.observe(method, 0, elapsed)
		t.log.DebugObj("http exchange failed", "http_exchange", map[string]any{
			"method": method,
			"path":   req.Path,
			"error":  err.Error(),
		})
		return fmt.Errorf("%s %s: %w", method, req.Path, err)
	}

	t.metrics.observe(method, resp.StatusCode(), elapsed)
	t.log.DebugObj("http exchange completed", "http_exchange", map[string]any{
		"method":     method,
		"path":       req.Path,
		"status":     resp.StatusCode(),
		"elapsed_ms": elapsed.Milliseconds(),
	})
	return routes.Dispatch(restyResponse{resp})
}
