package client

import (
	"fmt"
	"strings"
)

// URLs constructs endpoint URLs from the API and repository bases.
type URLs struct {
	api  string
	repo string
}

func trimSlash(s string) string { return strings.TrimSuffix(s, "/") }

// Package is the JSON metadata endpoint for a package.
func (u URLs) Package(name string) string {
	return fmt.Sprintf("%s/packages/%s", u.api, name)
}

// Release is the JSON metadata endpoint for one release.
func (u URLs) Release(name, version string) string {
	return fmt.Sprintf("%s/packages/%s/releases/%s", u.api, name, version)
}

// Keys is the API-key creation endpoint.
func (u URLs) Keys() string {
	return fmt.Sprintf("%s/keys", u.api)
}

// Names is the signed package-name index.
func (u URLs) Names() string {
	return fmt.Sprintf("%s/names", u.repo)
}

// Versions is the signed all-versions index.
func (u URLs) Versions() string {
	return fmt.Sprintf("%s/versions", u.repo)
}

// RepositoryPackage is the signed release index for one package.
func (u URLs) RepositoryPackage(name string) string {
	return fmt.Sprintf("%s/packages/%s", u.repo, name)
}

// Tarball is the release artifact endpoint.
func (u URLs) Tarball(name, version string) string {
	return fmt.Sprintf("%s/tarballs/%s-%s.tar", u.repo, name, version)
}

// Documentation is the hosted docs URL for a release.
func (u URLs) Documentation(name, version string) string {
	return fmt.Sprintf("https://hexdocs.pm/%s/%s", name, version)
}

// PURL renders the package URL identifier for a release.
func (u URLs) PURL(name, version string) string {
	if version == "" {
		return fmt.Sprintf("pkg:hex/%s", name)
	}
	return fmt.Sprintf("pkg:hex/%s@%s", name, version)
}
