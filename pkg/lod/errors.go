package lod

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// UnknownReason is the reason reported for any status outside the known table.
const UnknownReason = "Unknown or not implemented"

var reasons = map[int]string{
	203: "Non-Authoritative Information",
	204: "No Content",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	406: "Not Acceptable",
	412: "Invalid Content-Type",
	415: "Unsupported Media Type",
	500: "Internal Server Error",
}

// ReasonFor maps a status code to its fixed reason string.
func ReasonFor(status int) string {
	if r, ok := reasons[status]; ok {
		return r
	}
	return UnknownReason
}

// ServerError is a failed exchange: a non-200 response, or a network failure
// (Status 0, Err set).
type ServerError struct {
	Status  int
	Reason  string
	Message string
	Err     error
}

// NewServerError wraps a completed response.
func NewServerError(status int, body string) *ServerError {
	return &ServerError{Status: status, Reason: ReasonFor(status), Message: strings.TrimSpace(body)}
}

func newNetworkError(err error) *ServerError {
	return &ServerError{Reason: ReasonFor(0), Message: err.Error(), Err: err}
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Reason, e.Message)
}

func (e *ServerError) Unwrap() error { return e.Err }

// Network reports whether the exchange never produced a response.
func (e *ServerError) Network() bool { return e.Err != nil && e.Status == 0 }

// AsServerError extracts a *ServerError from err's chain.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// PreconditionError is returned before any request is issued when an
// argument is unusable.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateURL requires an absolute http(s) URL with a host.
func ValidateURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &PreconditionError{Field: field, Reason: "must be defined"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &PreconditionError{Field: field, Reason: "must be an url"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &PreconditionError{Field: field, Reason: "must be an http or https url"}
	}
	if u.Host == "" {
		return &PreconditionError{Field: field, Reason: "must include a host"}
	}
	return nil
}

func requireValue(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &PreconditionError{Field: field, Reason: "must be defined"}
	}
	return nil
}
