package resolve

import (
	"fmt"
	"strings"
)

// Failure reports that no assignment of versions can satisfy every
// requirement. Its message walks the derivation that proves it, from
// the recorded facts down to the contradiction.
type Failure struct {
	root    *incompatibility
	rootPkg string
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString("version solving failed:\n")
	f.explain(&b, f.root, 0)
	return strings.TrimRight(b.String(), "\n")
}

func (f *Failure) explain(b *strings.Builder, ic *incompatibility, depth int) {
	indent := strings.Repeat("  ", depth)
	if ic.kind != causeDerived {
		fmt.Fprintf(b, "%s%s.\n", indent, capitalize(ic.describe(f.rootPkg)))
		return
	}

	leftDerived := ic.left.kind == causeDerived
	rightDerived := ic.right.kind == causeDerived
	switch {
	case !leftDerived && !rightDerived:
		fmt.Fprintf(b, "%sBecause %s and %s, %s.\n", indent,
			ic.left.describe(f.rootPkg), ic.right.describe(f.rootPkg), ic.describeTerms(f.rootPkg))
	case leftDerived && !rightDerived:
		f.explain(b, ic.left, depth)
		fmt.Fprintf(b, "%sAnd because %s, %s.\n", indent,
			ic.right.describe(f.rootPkg), ic.describeTerms(f.rootPkg))
	case !leftDerived && rightDerived:
		f.explain(b, ic.right, depth)
		fmt.Fprintf(b, "%sAnd because %s, %s.\n", indent,
			ic.left.describe(f.rootPkg), ic.describeTerms(f.rootPkg))
	default:
		f.explain(b, ic.left, depth+1)
		f.explain(b, ic.right, depth+1)
		fmt.Fprintf(b, "%sThus, %s.\n", indent, ic.describeTerms(f.rootPkg))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
