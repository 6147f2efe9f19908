// Package registry implements the signed binary index format of the Hex
// registry: the Signed envelope, the Names, Versions and Package payload
// messages, and the detached-signature verification that gates every
// payload before it is decoded.
package registry

import "fmt"

// Signed is the outer envelope of every repository resource. The bytes
// under Payload are covered by Signature; Payload must never be decoded
// before the signature has been verified.
type Signed struct {
	Payload   []byte
	Signature []byte
}

// Names lists every package the repository knows about.
type Names struct {
	Packages   []string
	Repository string
}

// Versions lists all versions of all packages, with retirement markers.
// Retirement markers here let a client detect reuse of a version number
// that was previously published and retired.
type Versions struct {
	Packages   []PackageVersions
	Repository string
}

// PackageVersions is one package's entry in the Versions message.
// Retired holds indexes into Versions for the retired releases.
type PackageVersions struct {
	Name     string
	Versions []string
	Retired  []int64
}

// Package is the full release list for a single package.
type Package struct {
	Releases   []Release
	Name       string
	Repository string
}

// Release is one published version of a package.
//
// OuterChecksum is the SHA-256 digest of the release tarball and is the
// only integrity-authoritative checksum: it comes from the signed index,
// never from the unsigned JSON API. InnerChecksum is the legacy digest of
// the tarball contents, kept on the wire for compatibility.
//
// A retired release should only be resolved when a project has already
// locked it.
type Release struct {
	Version       string
	InnerChecksum []byte
	Dependencies  []Dependency
	Retired       *RetirementStatus
	OuterChecksum []byte
}

// IsRetired reports whether the release has been withdrawn.
func (r *Release) IsRetired() bool { return r.Retired != nil }

// Dependency is one requirement a release declares.
type Dependency struct {
	Package     string
	Requirement string
	// Optional dependencies do not need to be resolved unless some other
	// package requires them non-optionally.
	Optional bool
	// App is the OTP application name when it differs from Package.
	App string
	// Repository is set when the dependency lives in another repository.
	Repository string
}

// RetirementStatus carries the categorized reason a release was withdrawn.
type RetirementStatus struct {
	Reason  RetirementReason
	Message string
}

// RetirementReason is the registry's closed set of retirement categories.
type RetirementReason int32

const (
	RetiredOther RetirementReason = iota
	RetiredInvalid
	RetiredSecurity
	RetiredDeprecated
	RetiredRenamed
)

func (r RetirementReason) String() string {
	switch r {
	case RetiredOther:
		return "other"
	case RetiredInvalid:
		return "invalid"
	case RetiredSecurity:
		return "security"
	case RetiredDeprecated:
		return "deprecated"
	case RetiredRenamed:
		return "renamed"
	default:
		return fmt.Sprintf("reason(%d)", int32(r))
	}
}
