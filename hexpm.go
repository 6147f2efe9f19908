// Package hexpm is a client for Hex package registries.
//
// It fetches signed binary index records, verifies them against the
// repository's public key before decoding, downloads release tarballs
// with checksum verification, and resolves dependency graphs to a
// single compatible version per package.
//
// Basic usage:
//
//	key, err := hexpm.LoadPublicKey(pem)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	c := hexpm.NewClient()
//	repo := hexpm.NewRepository(c, key, nil)
//
//	assignment, err := hexpm.Resolve(context.Background(), repo, []hexpm.Dependency{
//		{Name: "plug", Requirement: hexpm.MustParseRequirement("~> 1.14")},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for name, v := range assignment {
//		fmt.Println(name, v)
//	}
package hexpm

import (
	"context"
	"crypto/rsa"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/hexpm/client"
	"github.com/git-pkgs/hexpm/fetch"
	"github.com/git-pkgs/hexpm/index"
	"github.com/git-pkgs/hexpm/registry"
	"github.com/git-pkgs/hexpm/resolve"
	"github.com/git-pkgs/hexpm/version"
)

// Re-export types from registry
type (
	// Signed is the signature envelope wrapping every index payload.
	Signed = registry.Signed

	// Names lists every package a repository serves.
	Names = registry.Names

	// Versions lists every version of every package in a repository.
	Versions = registry.Versions

	// Package is the full index record for one package.
	Package = registry.Package

	// Release is one published version of a package.
	Release = registry.Release

	// RetirementStatus explains why a release was retired.
	RetirementStatus = registry.RetirementStatus

	// RetirementReason classifies a retirement.
	RetirementReason = registry.RetirementReason
)

// Re-export retirement reasons
const (
	RetiredOther      = registry.RetiredOther
	RetiredInvalid    = registry.RetiredInvalid
	RetiredSecurity   = registry.RetiredSecurity
	RetiredDeprecated = registry.RetiredDeprecated
	RetiredRenamed    = registry.RetiredRenamed
)

// Re-export types from version
type (
	// Version is a parsed semantic version.
	Version = version.Version

	// Requirement is a parsed version requirement.
	Requirement = version.Requirement
)

// Re-export types from client and resolve
type (
	// Client talks to a Hex API and repository.
	Client = client.Client

	// Dependency is one requirement against a package.
	Dependency = resolve.Dependency

	// Assignment maps each resolved package to its chosen version.
	Assignment = resolve.Assignment

	// Failure explains why no version assignment exists.
	Failure = resolve.Failure
)

// Re-export errors
var (
	ErrNotFound         = client.ErrNotFound
	ErrSignatureInvalid = registry.ErrSignatureInvalid
)

// Error types
type (
	NotFoundError         = client.NotFoundError
	AuthError             = client.AuthError
	RateLimitError        = client.RateLimitError
	ServerError           = client.ServerError
	TransportError        = client.TransportError
	ChecksumMismatchError = fetch.ChecksumMismatchError
)

// Option configures a Client.
type Option = client.Option

var (
	WithAPIBase        = client.WithAPIBase
	WithRepositoryBase = client.WithRepositoryBase
	WithAPIKey         = client.WithAPIKey
	WithCredentials    = client.WithCredentials
	WithUserAgent      = client.WithUserAgent
	WithHTTPClient     = client.WithHTTPClient
)

// NewClient creates a client for hex.pm or, with options, any
// compatible registry.
func NewClient(opts ...Option) *Client {
	return client.New(opts...)
}

// LoadPublicKey parses a PEM-encoded RSA public key or certificate.
func LoadPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	return registry.LoadPublicKey(pemBytes)
}

// NewRepository creates a cached, signature-verifying view of a
// registry's package index. A nil store uses an in-memory cache.
func NewRepository(c *Client, key *rsa.PublicKey, store index.Store) *index.Repository {
	return index.NewRepository(c, key, store)
}

// ParseVersion parses a semantic version string.
func ParseVersion(s string) (*Version, error) {
	return version.Parse(s)
}

// MustParseRequirement parses a requirement string, panicking on
// invalid input. Use for literals.
func MustParseRequirement(s string) *Requirement {
	return version.MustParseRequirement(s)
}

// ParseRequirement parses a requirement string such as
// "~> 1.2 or >= 2.0.0 and < 3.0.0".
func ParseRequirement(s string) (*Requirement, error) {
	return version.ParseRequirement(s)
}

// Resolve picks a version for every package reachable from the given
// requirements, or returns a *Failure explaining the conflict.
func Resolve(ctx context.Context, repo *index.Repository, deps []Dependency) (Assignment, error) {
	return resolve.Resolve(ctx, repo, deps)
}

// FetchTarball downloads a release tarball and verifies it against the
// outer checksum recorded in the signed index.
func FetchTarball(ctx context.Context, c *Client, repo *index.Repository, name string, v *Version) ([]byte, error) {
	rel, err := repo.Release(ctx, name, v)
	if err != nil {
		return nil, err
	}
	f := fetch.NewFetcher(fetch.NewCircuitBreakerSource(c))
	return f.Fetch(ctx, name, v.String(), rel.OuterChecksum)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL such as "pkg:hex/plug@1.14.0".
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}
