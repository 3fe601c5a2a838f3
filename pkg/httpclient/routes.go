package httpclient

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnhandledResponse is matched by errors.Is when a response status has no
// route and no default route is registered.
var ErrUnhandledResponse = errors.New("unhandled response")

// UnhandledResponseError carries the response that no route accepted.
type UnhandledResponseError struct {
	Status int
	Body   string
}

func (e *UnhandledResponseError) Error() string {
	return fmt.Sprintf("unhandled response: status %d, body: %s", e.Status, snippet(e.Body))
}

func (e *UnhandledResponseError) Is(target error) bool { return target == ErrUnhandledResponse }

// Handler consumes a completed response.
type Handler func(Response) error

// Match selects which responses a route accepts: either one exact status
// code or any status (the default route).
type Match struct {
	code       int
	isFallback bool
}

// Status matches exactly one HTTP status code.
func Status(code int) Match { return Match{code: code} }

// Default matches any status not claimed by a Status route.
func Default() Match { return Match{isFallback: true} }

// IsDefault reports whether m is the default match.
func (m Match) IsDefault() bool { return m.isFallback }

// Code returns the status code of a Status match, 0 for Default.
func (m Match) Code() int { return m.code }

func (m Match) String() string {
	if m.isFallback {
		return "default"
	}
	return fmt.Sprintf("%d", m.code)
}

type route struct {
	match   Match
	handler Handler
}

// Routes is an ordered list of (Match, Handler) pairs. Status routes are
// consulted before the default route regardless of registration order; among
// routes of the same kind, the first registered wins.
type Routes struct {
	routes []route
}

// NewRoutes returns an empty route set.
func NewRoutes() *Routes { return &Routes{} }

// Handle registers h for m.
func (r *Routes) Handle(m Match, h Handler) *Routes {
	if h == nil {
		return r
	}
	r.routes = append(r.routes, route{match: m, handler: h})
	return r
}

// On registers h for a single status code.
func (r *Routes) On(code int, h Handler) *Routes { return r.Handle(Status(code), h) }

// Otherwise registers h as the default route.
func (r *Routes) Otherwise(h Handler) *Routes { return r.Handle(Default(), h) }

// Lookup returns the handler selected for status, if any.
func (r *Routes) Lookup(status int) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	for _, rt := range r.routes {
		if !rt.match.isFallback && rt.match.code == status {
			return rt.handler, true
		}
	}
	for _, rt := range r.routes {
		if rt.match.isFallback {
			return rt.handler, true
		}
	}
	return nil, false
}

// Dispatch hands resp to the selected route. With no matching route it
// returns an *UnhandledResponseError.
func (r *Routes) Dispatch(resp Response) error {
	h, ok := r.Lookup(resp.StatusCode())
	if !ok {
		return &UnhandledResponseError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return h(resp)
}

func snippet(s string) string {
	const maxLen = 512
	s = strings.TrimSpace(s)
	if s == "" {
		return "<empty>"
	}
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
