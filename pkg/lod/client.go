// Package lod is a client for the DataView, External Data Source and SPARQL
// web services of a Linked Open Data server.
package lod

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
)

const (
	defaultDataViewPath = "/dataView"
	defaultEDSPath      = "/EDS"
	defaultSPARQLPath   = "/sparql"
)

// Config locates the server's web services. It is passed to New and never
// mutated afterwards.
type Config struct {
	BaseURL      string
	DataViewPath string
	EDSPath      string
	SPARQLPath   string
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.DataViewPath == "" {
		c.DataViewPath = defaultDataViewPath
	}
	if c.EDSPath == "" {
		c.EDSPath = defaultEDSPath
	}
	if c.SPARQLPath == "" {
		c.SPARQLPath = defaultSPARQLPath
	}
	return c
}

// Client groups the resource clients sharing one transport.
type Client struct {
	DataViews *DataViews
	EDS       *EDS
	SPARQL    *SPARQL

	transport *httpclient.Transport
}

// New builds a Client for cfg. Transport options (timeout, auth, metrics...)
// are forwarded to httpclient.NewTransport.
func New(cfg Config, opts ...httpclient.TransportOption) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, &PreconditionError{Field: "base url", Reason: "must be defined"}
	}
	tr, err := httpclient.NewTransport(cfg.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	return NewWithTransport(cfg, tr), nil
}

// NewWithTransport builds a Client on an existing transport.
func NewWithTransport(cfg Config, tr *httpclient.Transport) *Client {
	cfg = cfg.withDefaults()
	ex := exchanger{transport: tr}
	return &Client{
		DataViews: &DataViews{ex: ex, path: cfg.DataViewPath},
		EDS:       &EDS{ex: ex, path: cfg.EDSPath},
		SPARQL:    &SPARQL{ex: ex, path: cfg.SPARQLPath},
		transport: tr,
	}
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string { return c.transport.BaseURL() }

// exchanger runs one request with the {200: success, default: failure} route set.
type exchanger struct {
	transport *httpclient.Transport
}

func (e exchanger) do(ctx context.Context, req httpclient.Request) ([]byte, error) {
	var body []byte
	routes := httpclient.NewRoutes().
		On(http.StatusOK, func(r httpclient.Response) error {
			body = r.Body()
			return nil
		}).
		Otherwise(func(r httpclient.Response) error {
			return NewServerError(r.StatusCode(), string(r.Body()))
		})

	err := e.transport.Do(ctx, req, routes)
	if err == nil {
		return body, nil
	}
	var se *ServerError
	if errors.As(err, &se) {
		return nil, se
	}
	return nil, newNetworkError(err)
}
