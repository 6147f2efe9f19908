package resolve

import "fmt"

// term is a statement about one package: a positive term asserts the
// chosen version lies in set, a negative term asserts it does not (or
// the package is not selected at all).
type term struct {
	pkg      string
	set      versionSet
	positive bool
}

func (t term) negate() term {
	return term{pkg: t.pkg, set: t.set, positive: !t.positive}
}

// intersect combines two statements about the same package into one.
func (t term) intersect(o term) term {
	switch {
	case t.positive && o.positive:
		return term{pkg: t.pkg, set: t.set.intersect(o.set), positive: true}
	case t.positive:
		return term{pkg: t.pkg, set: t.set.difference(o.set), positive: true}
	case o.positive:
		return term{pkg: t.pkg, set: o.set.difference(t.set), positive: true}
	default:
		return term{pkg: t.pkg, set: t.set.union(o.set), positive: false}
	}
}

func (t term) union(o term) term {
	return t.negate().intersect(o.negate()).negate()
}

// isEmpty reports whether no version can satisfy the term. A negative
// term over the empty set is a tautology, never empty.
func (t term) isEmpty() bool {
	return t.positive && t.set.empty()
}

// subsetOf reports whether every assignment satisfying t also
// satisfies o.
func (t term) subsetOf(o term) bool {
	return t.intersect(o.negate()).isEmpty()
}

type relation int

const (
	relInconclusive relation = iota
	relSatisfied
	relContradicted
)

// relate evaluates t against the accumulated knowledge about its
// package, or nil when nothing is known yet.
func relate(t term, known *term) relation {
	if t.positive && t.set.empty() {
		return relContradicted
	}
	if !t.positive && t.set.empty() {
		return relSatisfied
	}
	if known == nil {
		return relInconclusive
	}
	if known.subsetOf(t) {
		return relSatisfied
	}
	if known.intersect(t).isEmpty() {
		return relContradicted
	}
	return relInconclusive
}

func (t term) String() string {
	if t.positive {
		return fmt.Sprintf("%s (%s)", t.pkg, t.set)
	}
	return fmt.Sprintf("not %s (%s)", t.pkg, t.set)
}
