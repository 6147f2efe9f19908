// Package client talks to the Hex registry: the JSON metadata API, the
// signed binary index endpoints, and the tarball endpoint.
//
// The client owns no retry policy; it maps each response onto a closed
// error taxonomy and leaves backoff to the transport or the caller.
// Tarball bytes leave this layer unverified: integrity checking against
// the signed checksum belongs to the fetch package.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

const (
	// DefaultAPIURL is the public Hex API.
	DefaultAPIURL = "https://hex.pm/api"
	// DefaultRepositoryURL is the public Hex repository.
	DefaultRepositoryURL = "https://repo.hex.pm"

	defaultUserAgent = "hexpm-go/1.0"
)

// Doer issues a single HTTP request. *http.Client satisfies it; tests and
// callers with their own retry or pooling policy inject an alternative.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a registry client. It is stateless beyond the shared
// transport and safe for concurrent use.
type Client struct {
	urls      URLs
	userAgent string
	apiKey    string
	username  string
	password  string
	http      Doer
}

// Option configures a Client.
type Option func(*Client)

// WithAPIBase sets the JSON API base URL.
func WithAPIBase(url string) Option {
	return func(c *Client) { c.urls.api = trimSlash(url) }
}

// WithRepositoryBase sets the signed repository base URL.
func WithRepositoryBase(url string) Option {
	return func(c *Client) { c.urls.repo = trimSlash(url) }
}

// WithAPIKey authenticates API requests with a registry API key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithCredentials authenticates API requests with HTTP basic auth.
func WithCredentials(username, password string) Option {
	return func(c *Client) { c.username, c.password = username, password }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient injects the transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// New creates a Client for the public registry unless options say
// otherwise.
func New(opts ...Option) *Client {
	c := &Client{
		urls:      URLs{api: DefaultAPIURL, repo: DefaultRepositoryURL},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = DefaultHTTPClient()
	}
	return c
}

// URLs returns the client's URL builder.
func (c *Client) URLs() URLs { return c.urls }

// DefaultHTTPClient returns a pooled transport with cached DNS lookups.
func DefaultHTTPClient() *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: 5 * time.Minute, // tarballs can be large
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP")
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &TransportError{Op: method, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	switch {
	case c.apiKey != "":
		req.Header.Set("Authorization", c.apiKey)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method, URL: url, Err: err}
	}
	return resp, nil
}

// getJSON issues a GET and decodes a 200 response into v. Any other
// status is mapped through the error taxonomy.
func (c *Client) getJSON(ctx context.Context, url, name, version string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, url, nil, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, url, name, version)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &TransportError{Op: "decode", URL: url, Err: err}
	}
	return nil
}

// getRaw issues a GET and returns the body bytes of a 200 response.
func (c *Client) getRaw(ctx context.Context, url, name, version string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil, "*/*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, url, name, version)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read", URL: url, Err: err}
	}
	return body, nil
}

// GetTarball downloads a release tarball. The bytes are raw and
// unverified; callers must check them against the signed checksum.
func (c *Client) GetTarball(ctx context.Context, name, version string) ([]byte, error) {
	return c.getRaw(ctx, c.urls.Tarball(name, version), name, version)
}
