package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// ErrNotFound is returned when a package or release is not found.
var ErrNotFound = errors.New("not found")

// TransportError wraps a failure below HTTP: dial, TLS, timeout, a broken
// body read. It is the one class a caller may blindly retry.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError is returned for 401 and 403 responses. It is fatal; retrying
// with the same credentials cannot succeed.
type AuthError struct {
	StatusCode int
	URL        string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("HTTP %d: not authorized for %s", e.StatusCode, e.URL)
}

// NotFoundError wraps ErrNotFound with the lookup that missed.
type NotFoundError struct {
	Name    string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("package %s version %s not found", e.Name, e.Version)
	}
	return fmt.Sprintf("package %s not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RateLimitError is returned when the registry rate limits requests.
type RateLimitError struct {
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfter)
}

// ServerError represents a 5xx response. Retryable by the caller.
type ServerError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// Retryable reports that the failure was on the registry's side and a
// later attempt may succeed.
func (e *ServerError) Retryable() bool { return true }

// statusError maps a non-2xx response to the closed error taxonomy.
// The caller keeps ownership of resp.Body.
func statusError(resp *http.Response, url, name, version string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, URL: url}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Name: name, Version: version}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 60
		if s := resp.Header.Get("Retry-After"); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				retryAfter = n
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &ServerError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, url, string(body))
	}
}
