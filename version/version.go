// Package version models Hex package versions and version requirements.
//
// Versions follow semantic versioning: a mandatory major.minor.patch
// triplet, an optional pre-release tag and an optional build suffix.
// Ordering is semver precedence, so a pre-release sorts before the
// release it precedes (1.0.0-alpha < 1.0.0 < 1.0.1).
package version

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Hex requires the full triplet; "1.2" or "2" are not valid versions
// even though they are valid constraint operands.
var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z][0-9A-Za-z.-]*)?(\+[0-9A-Za-z][0-9A-Za-z.-]*)?$`)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Version is a parsed package version.
type Version struct {
	v   *goversion.Version
	raw string
}

// Parse parses a version string. The major.minor.patch triplet is
// mandatory; pre-release and build metadata are optional.
func Parse(s string) (*Version, error) {
	if !versionPattern.MatchString(s) {
		return nil, fmt.Errorf("invalid version %q", s)
	}
	v, err := goversion.NewSemver(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return &Version{v: v, raw: s}, nil
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Version) String() string { return v.raw }

// Compare returns -1, 0 or 1 per semver precedence. Build metadata is
// ignored, as semver demands.
func (v *Version) Compare(o *Version) int { return v.v.Compare(o.v) }

func (v *Version) LessThan(o *Version) bool { return v.v.LessThan(o.v) }

func (v *Version) Equal(o *Version) bool { return v.v.Equal(o.v) }

// Prerelease returns the pre-release tag, or "" for a final release.
func (v *Version) Prerelease() string { return v.v.Prerelease() }

// IsPrerelease reports whether the version carries a pre-release tag.
func (v *Version) IsPrerelease() bool { return v.v.Prerelease() != "" }

// Segments returns the major, minor and patch numbers.
func (v *Version) Segments() (major, minor, patch int) {
	seg := v.v.Segments()
	return seg[0], seg[1], seg[2]
}

// Sort orders versions ascending, in place.
func Sort(versions []*Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].LessThan(versions[j])
	})
}

// NormalizeName canonicalizes a package name. Name equality after
// normalization is the join key across the whole client.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateName reports whether a normalized name is a legal Hex package
// name: lowercase letters, digits and underscores, starting with a letter.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid package name %q", name)
	}
	return nil
}
