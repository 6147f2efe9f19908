package version

import (
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Requirement is a parsed version constraint as a release declares it
// against a dependency, e.g. "~> 1.2" or ">= 0.33.0 and < 2.0.0".
//
// The grammar is the registry's documented one: the comparison operators
// ==, !=, >, >=, <, <= and the pessimistic operator ~>, combined with
// "and" and "or" where "and" binds tighter. "a and b or c" therefore
// reads as "(a and b) or c". A Requirement is parsed once and immutable.
type Requirement struct {
	raw    string
	groups []goversion.Constraints
}

// ParseRequirement parses a requirement string.
func ParseRequirement(s string) (*Requirement, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, fmt.Errorf("empty requirement")
	}
	r := &Requirement{raw: raw}
	for _, group := range splitKeyword(raw, "or") {
		var atoms []string
		for _, atom := range splitKeyword(group, "and") {
			normalized, err := normalizeAtom(atom)
			if err != nil {
				return nil, fmt.Errorf("invalid requirement %q: %w", raw, err)
			}
			atoms = append(atoms, normalized)
		}
		cs, err := goversion.NewConstraint(strings.Join(atoms, ", "))
		if err != nil {
			return nil, fmt.Errorf("invalid requirement %q: %w", raw, err)
		}
		r.groups = append(r.groups, cs)
	}
	return r, nil
}

// MustParseRequirement is ParseRequirement for fixtures; it panics on error.
func MustParseRequirement(s string) *Requirement {
	r, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Matches reports whether v satisfies the requirement.
func (r *Requirement) Matches(v *Version) bool {
	for _, group := range r.groups {
		if group.Check(v.v) {
			return true
		}
	}
	return false
}

func (r *Requirement) String() string { return r.raw }

// splitKeyword splits s on a lone keyword token ("and"/"or"). Keywords
// are whole words, so package versions carrying them in pre-release tags
// are unaffected.
func splitKeyword(s, keyword string) []string {
	fields := strings.Fields(s)
	var parts []string
	var current []string
	for _, f := range fields {
		if f == keyword {
			parts = append(parts, strings.Join(current, " "))
			current = nil
			continue
		}
		current = append(current, f)
	}
	parts = append(parts, strings.Join(current, " "))
	return parts
}

// normalizeAtom rewrites one operator/operand pair into the constraint
// syntax the underlying library understands: "==" becomes "=", a bare
// version becomes an equality and "~>" passes through as the pessimistic
// operator, which widens the last given segment exactly the way the
// registry documents ("~> 2.0" is ">= 2.0.0 and < 3.0.0", "~> 2.0.1" is
// ">= 2.0.1 and < 2.1.0").
func normalizeAtom(atom string) (string, error) {
	atom = strings.TrimSpace(atom)
	if atom == "" {
		return "", fmt.Errorf("empty constraint")
	}
	for _, op := range []string{"==", "!=", ">=", "<=", "~>", ">", "<"} {
		if strings.HasPrefix(atom, op) {
			operand := strings.TrimSpace(atom[len(op):])
			if operand == "" {
				return "", fmt.Errorf("operator %q without version", op)
			}
			if op == "==" {
				op = "="
			}
			return op + " " + operand, nil
		}
	}
	// Bare operand means equality.
	if _, err := Parse(atom); err != nil {
		return "", err
	}
	return "= " + atom, nil
}
