package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	probeUserAgent    = "overlod-admin"
	probeMaxRedirects = 10
)

// RestyClient is the Client used for pages and source documents that live
// outside the overLOD server: alternate-link discovery and Last-Modified
// probes.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient returns a probe client. A zero timeout means none.
func NewRestyClient(timeout time.Duration) *RestyClient {
	c := newRestyBaseClient(timeout).
		SetHeader("User-Agent", probeUserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(probeMaxRedirects))
	return &RestyClient{client: c}
}

// WithBodyLimit makes responses larger than n bytes fail instead of being
// read into memory.
func (r *RestyClient) WithBodyLimit(n int) *RestyClient {
	if n > 0 {
		r.client.SetResponseBodyLimit(n)
	}
	return r
}

func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	return r.send(ctx, resty.MethodGet, url, headers)
}

// Head only fills status and headers; Body is empty.
func (r *RestyClient) Head(ctx context.Context, url string, headers map[string]string) (Response, error) {
	return r.send(ctx, resty.MethodHead, url, headers)
}

func (r *RestyClient) send(ctx context.Context, method, url string, headers map[string]string) (Response, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Execute(method, url)
	if err != nil {
		return nil, err
	}
	return restyResponse{resp}, nil
}

type restyResponse struct{ *resty.Response }

func (r restyResponse) Body() []byte             { return r.Response.Body() }
func (r restyResponse) StatusCode() int          { return r.Response.StatusCode() }
func (r restyResponse) Header(key string) string { return r.Response.Header().Get(key) }
