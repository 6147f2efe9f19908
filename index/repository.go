// Package index caches verified registry index records and adapts them
// to the solver's provider interface.
package index

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/hexpm/client"
	"github.com/git-pkgs/hexpm/registry"
	"github.com/git-pkgs/hexpm/resolve"
	"github.com/git-pkgs/hexpm/version"
)

// Source fetches verified package records from a registry.
type Source interface {
	GetRepositoryPackage(ctx context.Context, name string, key *rsa.PublicKey) (*registry.Package, error)
}

// Repository serves package metadata out of a Store, fetching and
// signature-verifying records on miss. It implements resolve.Provider.
//
// Retired releases are hidden from the solver unless a lockfile pins
// the package to that exact version, so existing projects keep
// resolving while new ones avoid retired code.
type Repository struct {
	source Source
	key    *rsa.PublicKey
	store  Store

	mu     sync.RWMutex
	locked map[string]string
}

func NewRepository(source Source, key *rsa.PublicKey, store Store) *Repository {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Repository{source: source, key: key, store: store, locked: make(map[string]string)}
}

// SetLocked records pinned versions from a lockfile. It replaces any
// previous pins.
func (r *Repository) SetLocked(pins map[string]string) {
	locked := make(map[string]string, len(pins))
	for name, v := range pins {
		locked[version.NormalizeName(name)] = v
	}
	r.mu.Lock()
	r.locked = locked
	r.mu.Unlock()
}

func (r *Repository) lockedVersion(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.locked[name]
	return v, ok
}

// Package returns the cached index entry for a package, fetching it
// when absent.
func (r *Repository) Package(ctx context.Context, name string) (*Entry, error) {
	name = version.NormalizeName(name)
	if e, ok := r.store.Get(name); ok {
		return e, nil
	}
	pkg, err := r.source.GetRepositoryPackage(ctx, name, r.key)
	if err != nil {
		return nil, err
	}
	e := &Entry{Name: name, Releases: pkg.Releases, FetchedAt: time.Now()}
	r.store.Put(name, e)
	return e, nil
}

// Invalidate drops a package's cached entry so the next lookup
// refetches it.
func (r *Repository) Invalidate(name string) {
	r.store.Delete(version.NormalizeName(name))
}

// InvalidateAll drops every cached entry.
func (r *Repository) InvalidateAll() {
	r.store.Clear()
}

// Warm prefetches several packages concurrently.
func (r *Repository) Warm(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, name := range names {
		name := name
		g.Go(func() error {
			_, err := r.Package(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// ListVersions returns a package's selectable versions newest-first.
// Unknown packages yield an empty list.
func (r *Repository) ListVersions(ctx context.Context, name string) ([]*version.Version, error) {
	name = version.NormalizeName(name)
	e, err := r.Package(ctx, name)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	pinned, hasPin := r.lockedVersion(name)
	out := make([]*version.Version, 0, len(e.Releases))
	for _, rel := range e.Releases {
		if rel.IsRetired() && !(hasPin && pinned == rel.Version) {
			continue
		}
		v, err := version.Parse(rel.Version)
		if err != nil {
			return nil, fmt.Errorf("release %s of %s: %w", rel.Version, name, err)
		}
		out = append(out, v)
	}
	version.Sort(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Dependencies returns the declared dependencies of one release.
func (r *Repository) Dependencies(ctx context.Context, name string, v *version.Version) ([]resolve.Dependency, error) {
	name = version.NormalizeName(name)
	e, err := r.Package(ctx, name)
	if err != nil {
		return nil, err
	}
	rel, ok := findRelease(e.Releases, v)
	if !ok {
		return nil, fmt.Errorf("package %s has no release %s", name, v)
	}
	deps := make([]resolve.Dependency, 0, len(rel.Dependencies))
	for _, d := range rel.Dependencies {
		req, err := version.ParseRequirement(d.Requirement)
		if err != nil {
			return nil, fmt.Errorf("dependency %s of %s %s: %w", d.Package, name, v, err)
		}
		deps = append(deps, resolve.Dependency{
			Name:        version.NormalizeName(d.Package),
			Requirement: req,
			Optional:    d.Optional,
		})
	}
	return deps, nil
}

// Release returns one release record, for checksum lookups.
func (r *Repository) Release(ctx context.Context, name string, v *version.Version) (*registry.Release, error) {
	e, err := r.Package(ctx, version.NormalizeName(name))
	if err != nil {
		return nil, err
	}
	rel, ok := findRelease(e.Releases, v)
	if !ok {
		return nil, fmt.Errorf("package %s has no release %s", name, v)
	}
	return rel, nil
}

func findRelease(releases []registry.Release, v *version.Version) (*registry.Release, bool) {
	for i := range releases {
		rv, err := version.Parse(releases[i].Version)
		if err != nil {
			continue
		}
		if rv.Equal(v) {
			return &releases[i], true
		}
	}
	return nil, false
}
