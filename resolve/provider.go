// Package resolve computes a mutually compatible version assignment for
// a dependency graph, or proves that none exists.
//
// The solver is conflict-driven search in the PubGrub family: it learns
// incompatibilities (sets of package terms that can never hold
// simultaneously), uses them for unit propagation, and resolves
// conflicts by synthesizing a more general incompatibility and
// backjumping. Failure is explainable: the returned error carries the
// derivation tree that proves no solution exists.
package resolve

import (
	"context"

	"github.com/git-pkgs/hexpm/version"
)

// Dependency is one requirement a release (or the root project)
// declares against a package.
type Dependency struct {
	Name        string
	Requirement *version.Requirement
	// Optional dependencies constrain the solution only when some other
	// package pulls the target in non-optionally.
	Optional bool
}

// Provider supplies package metadata to the solver.
//
// ListVersions returns a package's versions newest-first, or an empty
// list for a package the registry does not know; the solver turns an
// empty list into an explainable failure rather than an error.
// Lookups may block on network I/O, so implementations should cache:
// the solver revisits the same package repeatedly while backtracking.
type Provider interface {
	ListVersions(ctx context.Context, name string) ([]*version.Version, error)
	Dependencies(ctx context.Context, name string, v *version.Version) ([]Dependency, error)
}

// Assignment maps each required package to its chosen version. Every
// requirement reachable from the root is satisfied and each package is
// bound at most once.
type Assignment map[string]*version.Version
