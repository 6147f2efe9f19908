package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/git-pkgs/hexpm/registry"
	"github.com/git-pkgs/hexpm/version"
)

// fetchSigned downloads a signed index resource, gunzips it, decodes the
// envelope, and verifies the payload signature against the trusted key.
// The first failure wins; the payload is released only once verified.
func (c *Client) fetchSigned(ctx context.Context, url, name string, key *rsa.PublicKey) ([]byte, error) {
	raw, err := c.getRaw(ctx, url, name, "")
	if err != nil {
		return nil, err
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &TransportError{Op: "gunzip", URL: url, Err: err}
	}
	envelope, err := io.ReadAll(zr)
	if err != nil {
		return nil, &TransportError{Op: "gunzip", URL: url, Err: err}
	}
	if err := zr.Close(); err != nil {
		return nil, &TransportError{Op: "gunzip", URL: url, Err: err}
	}

	signed, err := registry.DecodeSigned(envelope)
	if err != nil {
		return nil, fmt.Errorf("decoding signed envelope from %s: %w", url, err)
	}
	payload, err := registry.VerifySigned(signed, key)
	if err != nil {
		// Never downgraded, never tolerated.
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return payload, nil
}

// GetRepositoryNames fetches and verifies the signed package-name index.
func (c *Client) GetRepositoryNames(ctx context.Context, key *rsa.PublicKey) (*registry.Names, error) {
	payload, err := c.fetchSigned(ctx, c.urls.Names(), "", key)
	if err != nil {
		return nil, err
	}
	names, err := registry.DecodeNames(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding names index: %w", err)
	}
	return names, nil
}

// GetRepositoryVersions fetches and verifies the signed all-versions
// index, including retirement markers.
func (c *Client) GetRepositoryVersions(ctx context.Context, key *rsa.PublicKey) (*registry.Versions, error) {
	payload, err := c.fetchSigned(ctx, c.urls.Versions(), "", key)
	if err != nil {
		return nil, err
	}
	versions, err := registry.DecodeVersions(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding versions index: %w", err)
	}
	return versions, nil
}

// GetRepositoryPackage fetches and verifies the signed release index for
// one package. Release checksums sourced here are the authoritative ones.
func (c *Client) GetRepositoryPackage(ctx context.Context, name string, key *rsa.PublicKey) (*registry.Package, error) {
	name = version.NormalizeName(name)
	payload, err := c.fetchSigned(ctx, c.urls.RepositoryPackage(name), name, key)
	if err != nil {
		return nil, err
	}
	pkg, err := registry.DecodePackage(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding package index for %s: %w", name, err)
	}
	return pkg, nil
}
