package resolve

import (
	"fmt"
	"sort"
	"strings"
)

type causeKind int

const (
	// causeRoot seeds the search: the root project must be selected.
	causeRoot causeKind = iota
	// causeDependency records that a release requires another package.
	causeDependency
	// causeNoVersions records that no version matched a required set.
	causeNoVersions
	// causeDerived incompatibilities are learned during conflict
	// resolution from two parents.
	causeDerived
)

// incompatibility is a set of terms that cannot all be satisfied at
// once. At most one term per package, sorted by package name.
type incompatibility struct {
	terms []term
	kind  causeKind

	// causeDependency only.
	depender    string
	dependerVer string
	dependency  string
	requirement string
	optional    bool

	// causeDerived only.
	left  *incompatibility
	right *incompatibility
}

func newIncompatibility(kind causeKind, terms ...term) *incompatibility {
	return &incompatibility{terms: normalizeTerms(terms), kind: kind}
}

// normalizeTerms sorts by package and drops tautologies. A negative
// term over the empty set holds for every assignment and contributes
// nothing to the incompatibility.
func normalizeTerms(terms []term) []term {
	kept := terms[:0]
	for _, t := range terms {
		if !t.positive && t.set.empty() {
			continue
		}
		kept = append(kept, t)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].pkg < kept[j].pkg })
	return kept
}

func (ic *incompatibility) termFor(pkg string) (term, bool) {
	for _, t := range ic.terms {
		if t.pkg == pkg {
			return t, true
		}
	}
	return term{}, false
}

// isTerminal reports whether the incompatibility proves the whole
// problem unsolvable: no terms left, or only the root selection.
func (ic *incompatibility) isTerminal(rootPkg string) bool {
	if len(ic.terms) == 0 {
		return true
	}
	return len(ic.terms) == 1 && ic.terms[0].positive && ic.terms[0].pkg == rootPkg
}

// describe renders the fact the incompatibility states, for failure
// explanations.
func (ic *incompatibility) describe(rootPkg string) string {
	switch ic.kind {
	case causeRoot:
		return "the project's dependencies must be satisfied"
	case causeNoVersions:
		t := ic.terms[0]
		return fmt.Sprintf("no version of %s matches %s", t.pkg, t.set)
	case causeDependency:
		req := ic.requirement
		if ic.optional {
			req += " (optional)"
		}
		if ic.depender == rootPkg {
			return fmt.Sprintf("the project depends on %s %s", ic.dependency, req)
		}
		return fmt.Sprintf("%s %s depends on %s %s", ic.depender, ic.dependerVer, ic.dependency, req)
	}
	return ic.describeTerms(rootPkg)
}

func (ic *incompatibility) describeTerms(rootPkg string) string {
	if ic.isTerminal(rootPkg) {
		return "version solving is impossible"
	}
	terms := make([]term, 0, len(ic.terms))
	for _, t := range ic.terms {
		if t.pkg == rootPkg {
			continue
		}
		terms = append(terms, t)
	}
	if len(terms) == 0 {
		return "version solving is impossible"
	}
	if len(terms) == 1 {
		t := terms[0]
		if t.positive {
			return fmt.Sprintf("%s (%s) is forbidden", t.pkg, t.set)
		}
		return fmt.Sprintf("%s must match %s", t.pkg, t.set)
	}
	if len(terms) == 2 && terms[0].positive && !terms[1].positive {
		return fmt.Sprintf("%s (%s) requires %s (%s)", terms[0].pkg, terms[0].set, terms[1].pkg, terms[1].set)
	}
	if len(terms) == 2 && terms[0].positive && terms[1].positive {
		return fmt.Sprintf("%s (%s) is incompatible with %s (%s)", terms[0].pkg, terms[0].set, terms[1].pkg, terms[1].set)
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " and ") + " cannot all hold"
}
