package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/git-pkgs/hexpm/version"
)

// rootPkg is the synthetic package holding the project's own
// requirements. The dollar sign keeps it out of the valid package
// namespace.
const rootPkg = "$root"

type checkResult int

const (
	checkNone checkResult = iota
	checkAlmost
	checkConflict
)

type solver struct {
	provider Provider
	roots    []Dependency

	rootVersion *version.Version

	// Caches keyed by package name.
	universe    map[string]versionSet
	newestFirst map[string][]*version.Version
	deps        map[string][]Dependency

	incompats []*incompatibility
	byPkg     map[string][]*incompatibility
	seen      map[string]bool

	part *partial
}

// Resolve finds a version for every package reachable from the root
// requirements such that all requirements hold, or returns a *Failure
// explaining why none exists. The result is deterministic for a given
// provider state.
func Resolve(ctx context.Context, provider Provider, roots []Dependency) (Assignment, error) {
	s := &solver{
		provider:    provider,
		roots:       roots,
		rootVersion: version.MustParse("0.0.0"),
		universe:    make(map[string]versionSet),
		newestFirst: make(map[string][]*version.Version),
		deps:        make(map[string][]Dependency),
		byPkg:       make(map[string][]*incompatibility),
		seen:        make(map[string]bool),
		part:        newPartial(),
	}
	s.universe[rootPkg] = versionSet{s.rootVersion}
	s.newestFirst[rootPkg] = []*version.Version{s.rootVersion}
	s.addIncompatibility(newIncompatibility(causeRoot,
		term{pkg: rootPkg, set: versionSet{s.rootVersion}, positive: false}))

	next := rootPkg
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("version solving interrupted: %w", err)
		}
		if err := s.propagate(next); err != nil {
			return nil, err
		}
		pkg, done, err := s.decision(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			return s.assignment(), nil
		}
		next = pkg
	}
}

func (s *solver) addIncompatibility(ic *incompatibility) {
	s.incompats = append(s.incompats, ic)
	for _, t := range ic.terms {
		s.byPkg[t.pkg] = append(s.byPkg[t.pkg], ic)
	}
}

// propagate runs unit propagation starting from the given package,
// deriving terms from almost-satisfied incompatibilities and invoking
// conflict resolution when one becomes fully satisfied.
func (s *solver) propagate(start string) error {
	changed := []string{start}
	for len(changed) > 0 {
		pkg := changed[len(changed)-1]
		changed = changed[:len(changed)-1]
		ics := s.byPkg[pkg]
		for i := len(ics) - 1; i >= 0; i-- {
			ic := ics[i]
			res, unsat := s.check(ic)
			if res == checkConflict {
				learned, err := s.resolveConflict(ic)
				if err != nil {
					return err
				}
				res, unsat = s.check(learned)
				if res != checkAlmost {
					return fmt.Errorf("internal solver state corrupt after backjump")
				}
				s.part.derive(unsat.negate(), learned)
				changed = changed[:0]
				changed = append(changed, unsat.pkg)
				break
			}
			if res == checkAlmost {
				s.part.derive(unsat.negate(), ic)
				changed = append(changed, unsat.pkg)
			}
		}
	}
	return nil
}

// check classifies an incompatibility against the partial solution:
// fully satisfied (conflict), satisfied except one inconclusive term
// (that term is returned), or neither.
func (s *solver) check(ic *incompatibility) (checkResult, term) {
	var unsat term
	open := 0
	for _, t := range ic.terms {
		switch s.part.relation(t) {
		case relContradicted:
			return checkNone, term{}
		case relInconclusive:
			open++
			unsat = t
		}
	}
	switch open {
	case 0:
		return checkConflict, term{}
	case 1:
		return checkAlmost, unsat
	}
	return checkNone, term{}
}

// resolveConflict implements conflict-driven clause learning: it walks
// the satisfaction of the conflicting incompatibility backwards,
// merging in the causes of derived assignments until the result can be
// resolved by backjumping, and returns the learned incompatibility
// after backtracking. A terminal incompatibility means the whole
// problem is unsolvable and is returned as a *Failure.
func (s *solver) resolveConflict(ic *incompatibility) (*incompatibility, error) {
	learnedNew := false
	for {
		if ic.isTerminal(rootPkg) {
			return nil, &Failure{root: ic, rootPkg: rootPkg}
		}
		satIdx, prevLevel := s.part.satisfier(ic)
		sat := s.part.log[satIdx]
		icTerm, _ := ic.termFor(sat.t.pkg)

		if sat.cause == nil || prevLevel != sat.level {
			s.part.backtrack(prevLevel)
			if learnedNew {
				s.addIncompatibility(ic)
			}
			return ic, nil
		}

		merged := make(map[string]term)
		for _, t := range ic.terms {
			if t.pkg != sat.t.pkg {
				merged[t.pkg] = t
			}
		}
		for _, t := range sat.cause.terms {
			if t.pkg == sat.t.pkg {
				continue
			}
			if prev, ok := merged[t.pkg]; ok {
				merged[t.pkg] = prev.union(t)
			} else {
				merged[t.pkg] = t
			}
		}
		// When earlier assignments contributed to satisfying the term,
		// carry the unexplained remainder along.
		if !sat.t.subsetOf(icTerm) {
			leftover := sat.t.intersect(icTerm.negate()).negate()
			if prev, ok := merged[leftover.pkg]; ok {
				merged[leftover.pkg] = prev.union(leftover)
			} else {
				merged[leftover.pkg] = leftover
			}
		}

		terms := make([]term, 0, len(merged))
		for _, t := range merged {
			terms = append(terms, t)
		}
		ic = &incompatibility{terms: normalizeTerms(terms), kind: causeDerived, left: ic, right: sat.cause}
		learnedNew = true
	}
}

// decision picks the undecided package with the fewest viable
// candidates, records its dependencies, and decides its best version.
// done is true once every required package has a decision.
func (s *solver) decision(ctx context.Context) (pkg string, done bool, err error) {
	type candidate struct {
		pkg      string
		versions []*version.Version
	}
	var cands []candidate
	for name, known := range s.part.known {
		if !known.positive {
			continue
		}
		if _, decided := s.part.decisions[name]; decided {
			continue
		}
		vs, err := s.candidates(ctx, name, known.set)
		if err != nil {
			return "", false, err
		}
		cands = append(cands, candidate{pkg: name, versions: vs})
	}
	if len(cands) == 0 {
		return "", true, nil
	}
	sort.Slice(cands, func(i, j int) bool {
		if len(cands[i].versions) != len(cands[j].versions) {
			return len(cands[i].versions) < len(cands[j].versions)
		}
		return cands[i].pkg < cands[j].pkg
	})
	best := cands[0]

	if len(best.versions) == 0 {
		s.addIncompatibility(newIncompatibility(causeNoVersions,
			term{pkg: best.pkg, set: s.part.known[best.pkg].set, positive: true}))
		return best.pkg, false, nil
	}

	v := best.versions[0]
	if err := s.expand(ctx, best.pkg, v); err != nil {
		return "", false, err
	}
	for _, ic := range s.byPkg[best.pkg] {
		if s.wouldConflict(ic, best.pkg, v) {
			return best.pkg, false, nil
		}
	}
	s.part.decide(best.pkg, v)
	return best.pkg, false, nil
}

// expand records the dependency incompatibilities of a release the
// first time the solver visits it.
func (s *solver) expand(ctx context.Context, pkg string, v *version.Version) error {
	key := pkg + "@" + v.String()
	if s.seen[key] {
		return nil
	}
	s.seen[key] = true

	deps, err := s.dependencies(ctx, pkg, v)
	if err != nil {
		return err
	}
	sorted := make([]Dependency, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	this := term{pkg: pkg, set: versionSet{v}, positive: true}
	for _, dep := range sorted {
		if dep.Name == pkg {
			continue
		}
		uni, err := s.universeOf(ctx, dep.Name)
		if err != nil {
			return err
		}
		var allowed versionSet
		for _, dv := range uni {
			if dep.Requirement.Matches(dv) {
				allowed = append(allowed, dv)
			}
		}
		var other term
		if dep.Optional {
			// Optional requirements only forbid the versions outside
			// the allowed set, without pulling the package in.
			excluded := uni.difference(allowed)
			if excluded.empty() {
				continue
			}
			other = term{pkg: dep.Name, set: excluded, positive: true}
		} else {
			other = term{pkg: dep.Name, set: allowed, positive: false}
		}
		ic := newIncompatibility(causeDependency, this, other)
		ic.depender = pkg
		ic.dependerVer = v.String()
		ic.dependency = dep.Name
		ic.requirement = dep.Requirement.String()
		ic.optional = dep.Optional
		s.addIncompatibility(ic)
	}
	return nil
}

// wouldConflict reports whether deciding pkg at v satisfies every term
// of the incompatibility.
func (s *solver) wouldConflict(ic *incompatibility, pkg string, v *version.Version) bool {
	decided := term{pkg: pkg, set: versionSet{v}, positive: true}
	if known := s.part.known[pkg]; known != nil {
		decided = known.intersect(decided)
	}
	for _, t := range ic.terms {
		if t.pkg == pkg {
			if relate(t, &decided) != relSatisfied {
				return false
			}
			continue
		}
		if s.part.relation(t) != relSatisfied {
			return false
		}
	}
	return true
}

// candidates lists the versions in the allowed set, best-first:
// non-prerelease releases newest-first, then prereleases newest-first.
func (s *solver) candidates(ctx context.Context, pkg string, allowed versionSet) ([]*version.Version, error) {
	all, err := s.listNewestFirst(ctx, pkg)
	if err != nil {
		return nil, err
	}
	var stable, pre []*version.Version
	for _, v := range all {
		if !allowed.contains(v) {
			continue
		}
		if v.IsPrerelease() {
			pre = append(pre, v)
		} else {
			stable = append(stable, v)
		}
	}
	return append(stable, pre...), nil
}

func (s *solver) universeOf(ctx context.Context, pkg string) (versionSet, error) {
	if uni, ok := s.universe[pkg]; ok {
		return uni, nil
	}
	vs, err := s.listNewestFirst(ctx, pkg)
	if err != nil {
		return nil, err
	}
	uni := newVersionSet(vs)
	s.universe[pkg] = uni
	return uni, nil
}

func (s *solver) listNewestFirst(ctx context.Context, pkg string) ([]*version.Version, error) {
	if vs, ok := s.newestFirst[pkg]; ok {
		return vs, nil
	}
	vs, err := s.provider.ListVersions(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", pkg, err)
	}
	ordered := make([]*version.Version, len(vs))
	copy(ordered, vs)
	version.Sort(ordered)
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	s.newestFirst[pkg] = ordered
	return ordered, nil
}

func (s *solver) dependencies(ctx context.Context, pkg string, v *version.Version) ([]Dependency, error) {
	if pkg == rootPkg {
		return s.roots, nil
	}
	key := pkg + "@" + v.String()
	if deps, ok := s.deps[key]; ok {
		return deps, nil
	}
	deps, err := s.provider.Dependencies(ctx, pkg, v)
	if err != nil {
		return nil, fmt.Errorf("loading dependencies of %s %s: %w", pkg, v, err)
	}
	s.deps[key] = deps
	return deps, nil
}

func (s *solver) assignment() Assignment {
	out := make(Assignment, len(s.part.decisions))
	for pkg, v := range s.part.decisions {
		if pkg == rootPkg {
			continue
		}
		out[pkg] = v
	}
	return out
}
