package resolve

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/git-pkgs/hexpm/version"
)

// mapProvider is an in-memory provider for solver tests. Keys of deps
// are "name version".
type mapProvider struct {
	versions map[string][]string
	deps     map[string][]Dependency
	calls    map[string]int
}

func newMapProvider() *mapProvider {
	return &mapProvider{
		versions: make(map[string][]string),
		deps:     make(map[string][]Dependency),
		calls:    make(map[string]int),
	}
}

func (p *mapProvider) add(name, ver string, deps ...Dependency) {
	p.versions[name] = append(p.versions[name], ver)
	p.deps[name+" "+ver] = deps
}

func (p *mapProvider) ListVersions(ctx context.Context, name string) ([]*version.Version, error) {
	p.calls[name]++
	var out []*version.Version
	for _, s := range p.versions[name] {
		out = append(out, version.MustParse(s))
	}
	return out, nil
}

func (p *mapProvider) Dependencies(ctx context.Context, name string, v *version.Version) ([]Dependency, error) {
	deps, ok := p.deps[name+" "+v.String()]
	if !ok {
		return nil, fmt.Errorf("no release %s %s", name, v)
	}
	return deps, nil
}

func dep(name, req string) Dependency {
	return Dependency{Name: name, Requirement: version.MustParseRequirement(req)}
}

func optDep(name, req string) Dependency {
	d := dep(name, req)
	d.Optional = true
	return d
}

func assignmentStrings(a Assignment) map[string]string {
	out := make(map[string]string, len(a))
	for name, v := range a {
		out[name] = v.String()
	}
	return out
}

func TestResolveSimple(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0")
	p.add("a", "1.1.0", dep("b", ">= 1.0.0"))
	p.add("b", "1.0.0")
	p.add("b", "2.0.0")

	got, err := Resolve(context.Background(), p, []Dependency{dep("a", "~> 1.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := map[string]string{"a": "1.1.0", "b": "2.0.0"}
	if !reflect.DeepEqual(assignmentStrings(got), want) {
		t.Errorf("got %v, want %v", assignmentStrings(got), want)
	}
}

func TestResolvePrefersNewest(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0")
	p.add("a", "1.5.0")
	p.add("a", "2.1.0")

	got, err := Resolve(context.Background(), p, []Dependency{dep("a", ">= 1.0.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got["a"].String() != "2.1.0" {
		t.Errorf("a = %s, want 2.1.0", got["a"])
	}
}

func TestResolvePrefersStableOverPrerelease(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0")
	p.add("a", "1.1.0-rc.1")

	got, err := Resolve(context.Background(), p, []Dependency{dep("a", ">= 1.0.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got["a"].String() != "1.0.0" {
		t.Errorf("a = %s, want 1.0.0", got["a"])
	}
}

func TestResolveBacktracksOverBrokenRelease(t *testing.T) {
	// a 1.1.0 needs a b that does not exist, so the solver must fall
	// back to a 1.0.0.
	p := newMapProvider()
	p.add("a", "1.0.0")
	p.add("a", "1.1.0", dep("b", ">= 2.0.0"))
	p.add("b", "1.0.0")

	got, err := Resolve(context.Background(), p, []Dependency{
		dep("a", ">= 1.0.0 and < 2.0.0"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := map[string]string{"a": "1.0.0"}
	if !reflect.DeepEqual(assignmentStrings(got), want) {
		t.Errorf("got %v, want %v", assignmentStrings(got), want)
	}
}

func TestResolveConflictDriven(t *testing.T) {
	// foo 2.0.0 pulls in bar, but bar requires foo 1.x. The solver has
	// to learn the conflict and settle on foo 1.0.0 alone.
	p := newMapProvider()
	p.add("foo", "1.0.0")
	p.add("foo", "2.0.0", dep("bar", "~> 1.0"))
	p.add("bar", "1.0.0", dep("foo", "~> 1.0"))

	got, err := Resolve(context.Background(), p, []Dependency{dep("foo", ">= 1.0.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := map[string]string{"foo": "1.0.0"}
	if !reflect.DeepEqual(assignmentStrings(got), want) {
		t.Errorf("got %v, want %v", assignmentStrings(got), want)
	}
}

func TestResolveSharedConstraint(t *testing.T) {
	// Both parents constrain the shared package; the solution must
	// satisfy the intersection.
	p := newMapProvider()
	p.add("left", "1.0.0", dep("shared", ">= 1.0.0"))
	p.add("right", "1.0.0", dep("shared", "< 2.0.0"))
	p.add("shared", "1.0.0")
	p.add("shared", "1.5.0")
	p.add("shared", "2.0.0")

	got, err := Resolve(context.Background(), p, []Dependency{
		dep("left", "1.0.0"),
		dep("right", "1.0.0"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got["shared"].String() != "1.5.0" {
		t.Errorf("shared = %s, want 1.5.0", got["shared"])
	}
}

func TestResolveDiamond(t *testing.T) {
	p := newMapProvider()
	p.add("top", "1.0.0", dep("left", "~> 1.0"), dep("right", "~> 1.0"))
	p.add("left", "1.0.0", dep("base", ">= 1.0.0 and < 3.0.0"))
	p.add("right", "1.0.0", dep("base", ">= 2.0.0"))
	p.add("base", "1.0.0")
	p.add("base", "2.0.0")
	p.add("base", "3.0.0")

	got, err := Resolve(context.Background(), p, []Dependency{dep("top", "~> 1.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got["base"].String() != "2.0.0" {
		t.Errorf("base = %s, want 2.0.0", got["base"])
	}
}

func TestResolveOptionalDependencyIgnoredWhenUnused(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0", optDep("b", "~> 1.0"))
	p.add("b", "1.0.0")
	p.add("b", "2.0.0")

	got, err := Resolve(context.Background(), p, []Dependency{dep("a", "1.0.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := got["b"]; ok {
		t.Error("optional dependency was pulled in with nothing requiring it")
	}
}

func TestResolveOptionalDependencyConstrainsWhenPresent(t *testing.T) {
	// a's optional requirement on b must still bound b's version once c
	// pulls b in.
	p := newMapProvider()
	p.add("a", "1.0.0", optDep("b", "~> 1.0"))
	p.add("b", "1.0.0")
	p.add("b", "2.0.0")
	p.add("c", "1.0.0", dep("b", ">= 1.0.0"))

	got, err := Resolve(context.Background(), p, []Dependency{
		dep("a", "1.0.0"),
		dep("c", "1.0.0"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got["b"].String() != "1.0.0" {
		t.Errorf("b = %s, want 1.0.0 (bounded by the optional requirement)", got["b"])
	}
}

func TestResolveUnknownPackage(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0", dep("ghost", ">= 1.0.0"))

	_, err := Resolve(context.Background(), p, []Dependency{dep("a", "1.0.0")})
	if err == nil {
		t.Fatal("expected failure for dependency on unknown package")
	}
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("got %T (%v), want *Failure", err, err)
	}
}

func TestResolveUnsolvable(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0", dep("shared", "< 2.0.0"))
	p.add("b", "1.0.0", dep("shared", ">= 2.0.0"))
	p.add("shared", "1.0.0")
	p.add("shared", "2.0.0")

	_, err := Resolve(context.Background(), p, []Dependency{
		dep("a", "1.0.0"),
		dep("b", "1.0.0"),
	})
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("got %T (%v), want *Failure", err, err)
	}
	msg := failure.Error()
	if !strings.Contains(msg, "version solving failed") {
		t.Errorf("message missing header: %q", msg)
	}
	if !strings.Contains(msg, "shared") {
		t.Errorf("message does not mention the conflicting package: %q", msg)
	}
}

func TestResolveFailureMentionsRequirements(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0", dep("b", ">= 2.0.0"))
	p.add("b", "1.0.0")

	_, err := Resolve(context.Background(), p, []Dependency{dep("a", "1.0.0")})
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("got %T (%v), want *Failure", err, err)
	}
	msg := failure.Error()
	if !strings.Contains(msg, "a 1.0.0 depends on b >= 2.0.0") {
		t.Errorf("message missing dependency fact: %q", msg)
	}
}

func TestResolveDeterministic(t *testing.T) {
	build := func() *mapProvider {
		p := newMapProvider()
		p.add("a", "1.0.0", dep("x", ">= 1.0.0"))
		p.add("b", "1.0.0", dep("x", "< 2.0.0"))
		p.add("x", "1.0.0")
		p.add("x", "1.1.0")
		p.add("x", "2.0.0")
		return p
	}
	roots := []Dependency{dep("a", "1.0.0"), dep("b", "1.0.0")}

	first, err := Resolve(context.Background(), build(), roots)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Resolve(context.Background(), build(), roots)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !reflect.DeepEqual(assignmentStrings(first), assignmentStrings(again)) {
			t.Fatalf("run %d differs: %v vs %v", i, assignmentStrings(again), assignmentStrings(first))
		}
	}
}

func TestResolveCachesProviderCalls(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0", dep("b", ">= 1.0.0"))
	p.add("b", "1.0.0", dep("a", ">= 1.0.0"))

	if _, err := Resolve(context.Background(), p, []Dependency{dep("a", "1.0.0")}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for name, n := range p.calls {
		if n > 1 {
			t.Errorf("ListVersions(%s) called %d times", name, n)
		}
	}
}

func TestResolveCancelled(t *testing.T) {
	p := newMapProvider()
	p.add("a", "1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Resolve(ctx, p, []Dependency{dep("a", "1.0.0")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestResolveEmptyRoot(t *testing.T) {
	got, err := Resolve(context.Background(), newMapProvider(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty assignment", got)
	}
}
