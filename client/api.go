package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/git-pkgs/hexpm/version"
)

// PackageInfo is JSON API metadata for a package. It is browse-level
// data; nothing in it is integrity-authoritative.
type PackageInfo struct {
	Name        string
	Description string
	Licenses    string
	Homepage    string
	Repository  string
	Downloads   int
	Releases    []ReleaseSummary
}

// ReleaseSummary is one line of a package's release list.
type ReleaseSummary struct {
	Version    string
	InsertedAt string
}

// ReleaseInfo is JSON API metadata for a single release. The checksum
// the API reports is informational only; the signed index owns integrity.
type ReleaseInfo struct {
	Version      string
	Checksum     string
	Downloads    int
	Retired      bool
	Requirements map[string]RequirementInfo
}

// RequirementInfo is one declared dependency of a release.
type RequirementInfo struct {
	Requirement string
	Optional    bool
	App         string
}

type packageResponse struct {
	Name      string        `json:"name"`
	Meta      metaInfo      `json:"meta"`
	Releases  []releaseInfo `json:"releases"`
	Downloads downloadsInfo `json:"downloads"`
}

type metaInfo struct {
	Description string            `json:"description"`
	Licenses    []string          `json:"licenses"`
	Links       map[string]string `json:"links"`
}

type releaseInfo struct {
	Version    string `json:"version"`
	InsertedAt string `json:"inserted_at"`
}

type downloadsInfo struct {
	All int `json:"all"`
}

type releaseResponse struct {
	Version      string                     `json:"version"`
	Checksum     string                     `json:"checksum"`
	Downloads    int                        `json:"downloads"`
	Retirement   map[string]any             `json:"retirement"`
	Requirements map[string]requirementInfo `json:"requirements"`
}

type requirementInfo struct {
	Requirement string `json:"requirement"`
	Optional    bool   `json:"optional"`
	App         string `json:"app"`
}

// GetPackage retrieves browse metadata for a package.
func (c *Client) GetPackage(ctx context.Context, name string) (*PackageInfo, error) {
	name = version.NormalizeName(name)

	var resp packageResponse
	if err := c.getJSON(ctx, c.urls.Package(name), name, "", &resp); err != nil {
		return nil, err
	}

	links := make(map[string]string)
	for k, v := range resp.Meta.Links {
		links[strings.ToLower(k)] = v
	}

	var homepage, repository string
	if gh, ok := links["github"]; ok {
		repository = gh
	}
	for k, v := range links {
		if k != "github" && homepage == "" {
			homepage = v
		}
	}

	info := &PackageInfo{
		Name:        resp.Name,
		Description: resp.Meta.Description,
		Licenses:    strings.Join(resp.Meta.Licenses, ","),
		Homepage:    homepage,
		Repository:  repository,
		Downloads:   resp.Downloads.All,
	}
	for _, r := range resp.Releases {
		info.Releases = append(info.Releases, ReleaseSummary{
			Version:    r.Version,
			InsertedAt: r.InsertedAt,
		})
	}
	return info, nil
}

// GetRelease retrieves browse metadata for one release.
func (c *Client) GetRelease(ctx context.Context, name, ver string) (*ReleaseInfo, error) {
	name = version.NormalizeName(name)

	var resp releaseResponse
	if err := c.getJSON(ctx, c.urls.Release(name, ver), name, ver, &resp); err != nil {
		return nil, err
	}

	info := &ReleaseInfo{
		Version:   resp.Version,
		Checksum:  resp.Checksum,
		Downloads: resp.Downloads,
		Retired:   len(resp.Retirement) > 0,
	}
	if len(resp.Requirements) > 0 {
		info.Requirements = make(map[string]RequirementInfo, len(resp.Requirements))
		for dep, req := range resp.Requirements {
			info.Requirements[dep] = RequirementInfo{
				Requirement: req.Requirement,
				Optional:    req.Optional,
				App:         req.App,
			}
		}
	}
	return info, nil
}

type authenticateRequest struct {
	Name        string           `json:"name"`
	Permissions []authPermission `json:"permissions"`
}

type authPermission struct {
	Domain   string `json:"domain"`
	Resource string `json:"resource"`
}

type authenticateResponse struct {
	Secret string `json:"secret"`
}

// Authenticate exchanges a username and password for an API key, which
// unlocks authenticated endpoints and a higher rate limit.
func (c *Client) Authenticate(ctx context.Context, username, password, keyName string) (string, error) {
	body, err := json.Marshal(authenticateRequest{
		Name: keyName,
		Permissions: []authPermission{
			{Domain: "api", Resource: "write"},
		},
	})
	if err != nil {
		return "", err
	}

	url := c.urls.Keys()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Op: http.MethodPost, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(username, password)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: http.MethodPost, URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return "", statusError(resp, url, "", "")
	}

	var created authenticateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&created); err != nil {
		return "", &TransportError{Op: "decode", URL: url, Err: err}
	}
	return created.Secret, nil
}
