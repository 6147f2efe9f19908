package resolve

import "github.com/git-pkgs/hexpm/version"

// assignment is one entry in the partial solution log: a decision
// (cause nil) or a term derived from an incompatibility.
type assignment struct {
	t     term
	cause *incompatibility
	level int
}

// partial is the solver's partial solution: the ordered log of
// assignments plus, per package, the intersection of everything the
// log states about it.
type partial struct {
	log       []assignment
	known     map[string]*term
	decisions map[string]*version.Version
	level     int
}

func newPartial() *partial {
	return &partial{
		known:     make(map[string]*term),
		decisions: make(map[string]*version.Version),
	}
}

func (p *partial) fold(t term) {
	if prev, ok := p.known[t.pkg]; ok {
		next := prev.intersect(t)
		p.known[t.pkg] = &next
	} else {
		copied := t
		p.known[t.pkg] = &copied
	}
}

func (p *partial) decide(pkg string, v *version.Version) {
	p.level++
	t := term{pkg: pkg, set: versionSet{v}, positive: true}
	p.log = append(p.log, assignment{t: t, level: p.level})
	p.decisions[pkg] = v
	p.fold(t)
}

func (p *partial) derive(t term, cause *incompatibility) {
	p.log = append(p.log, assignment{t: t, cause: cause, level: p.level})
	p.fold(t)
}

// backtrack discards every assignment above the given decision level
// and rebuilds the folded state.
func (p *partial) backtrack(level int) {
	kept := p.log[:0]
	for _, a := range p.log {
		if a.level <= level {
			kept = append(kept, a)
		}
	}
	p.log = kept
	p.level = level
	p.known = make(map[string]*term)
	p.decisions = make(map[string]*version.Version)
	for _, a := range p.log {
		p.fold(a.t)
		if a.cause == nil {
			p.decisions[a.t.pkg] = a.t.set[0]
		}
	}
}

func (p *partial) relation(t term) relation {
	return relate(t, p.known[t.pkg])
}

// satisfier finds the earliest log index at which the incompatibility
// becomes satisfied, and the decision level of the latest assignment
// before it that the satisfaction also depends on (1 when the
// satisfier suffices together with nothing above the root level).
func (p *partial) satisfier(ic *incompatibility) (int, int) {
	satisfied := func(known map[string]*term) bool {
		for _, t := range ic.terms {
			if relate(t, known[t.pkg]) != relSatisfied {
				return false
			}
		}
		return true
	}
	foldInto := func(known map[string]*term, t term) {
		if prev, ok := known[t.pkg]; ok {
			next := prev.intersect(t)
			known[t.pkg] = &next
		} else {
			copied := t
			known[t.pkg] = &copied
		}
	}

	idx := -1
	known := make(map[string]*term)
	for i, a := range p.log {
		if _, ok := ic.termFor(a.t.pkg); !ok {
			continue
		}
		foldInto(known, a.t)
		if satisfied(known) {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Callers only pass satisfied incompatibilities.
		return len(p.log) - 1, 1
	}

	known = make(map[string]*term)
	foldInto(known, p.log[idx].t)
	if satisfied(known) {
		return idx, 1
	}
	for j := 0; j < idx; j++ {
		a := p.log[j]
		if _, ok := ic.termFor(a.t.pkg); !ok {
			continue
		}
		foldInto(known, a.t)
		if satisfied(known) {
			return idx, a.level
		}
	}
	return idx, 1
}
