package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
)

// Webhook headers set on every delivery.
const (
	HeaderEventType = "X-Overlod-Event"
	HeaderEventID   = "X-Overlod-Event-Id"
)

// webhookPublisher delivers events as JSON to an HTTP endpoint through the
// same transport the server client uses.
type webhookPublisher struct {
	id        string
	method    string
	headers   map[string]string
	transport *httpclient.Transport
	log       Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	tr, err := httpclient.NewTransport(cfg.HTTP.URL,
		httpclient.WithTimeout(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second),
		httpclient.WithUserAgent("overlod-admin/"+cfg.ID),
	)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.HTTP.Method))
	if method == "" {
		method = httpDefaultMethod
	}
	return &webhookPublisher{
		id:        cfg.ID,
		method:    method,
		headers:   cfg.HTTP.Headers,
		transport: tr,
		log:       ensureLogger(log),
	}, nil
}

func (h *webhookPublisher) ID() string   { return h.id }
func (h *webhookPublisher) Type() string { return TypeHTTP }

// Publish posts the event. Any 2xx answer counts as delivered; anything else
// is returned as a *lod.ServerError.
func (h *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	header := make(map[string]string, len(h.headers)+2)
	for k, v := range h.headers {
		header[k] = v
	}
	header[HeaderEventType] = evt.Type
	header[HeaderEventID] = evt.ID

	var status int
	routes := httpclient.NewRoutes().Otherwise(func(r httpclient.Response) error {
		status = r.StatusCode()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return lod.NewServerError(status, string(r.Body()))
		}
		return nil
	})

	err = h.transport.Do(ctx, httpclient.Request{
		Method:      h.method,
		Body:        payload,
		ContentType: "application/json",
		Header:      header,
	}, routes)
	if err != nil {
		h.log.ErrorObj("webhook delivery failed", "publisher_http_error", map[string]any{
			"publisher_id": h.id,
			"event_id":     evt.ID,
			"error":        err.Error(),
		})
		return fmt.Errorf("deliver webhook: %w", err)
	}
	h.log.DebugObj("webhook delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"status":       status,
	})
	return nil
}
