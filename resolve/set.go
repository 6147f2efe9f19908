package resolve

import (
	"strings"

	"github.com/git-pkgs/hexpm/version"
)

// versionSet is a finite set of versions held in ascending order with
// no duplicates. All solver terms denote subsets of a package's known
// universe, so ordinary set operations over sorted slices are exact.
type versionSet []*version.Version

func newVersionSet(vs []*version.Version) versionSet {
	out := make(versionSet, 0, len(vs))
	out = append(out, vs...)
	version.Sort(out)
	dedup := out[:0]
	for i, v := range out {
		if i > 0 && v.Equal(out[i-1]) {
			continue
		}
		dedup = append(dedup, v)
	}
	return dedup
}

func (s versionSet) empty() bool { return len(s) == 0 }

func (s versionSet) contains(v *version.Version) bool {
	for _, w := range s {
		c := w.Compare(v)
		if c == 0 {
			return true
		}
		if c > 0 {
			return false
		}
	}
	return false
}

func (s versionSet) equal(o versionSet) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (s versionSet) intersect(o versionSet) versionSet {
	var out versionSet
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch c := s[i].Compare(o[j]); {
		case c < 0:
			i++
		case c > 0:
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	return out
}

func (s versionSet) union(o versionSet) versionSet {
	var out versionSet
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch c := s[i].Compare(o[j]); {
		case c < 0:
			out = append(out, s[i])
			i++
		case c > 0:
			out = append(out, o[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	out = append(out, o[j:]...)
	return out
}

// difference returns s \ o.
func (s versionSet) difference(o versionSet) versionSet {
	var out versionSet
	j := 0
	for _, v := range s {
		for j < len(o) && o[j].LessThan(v) {
			j++
		}
		if j < len(o) && o[j].Equal(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s versionSet) String() string {
	if len(s) == 0 {
		return "no versions"
	}
	if len(s) == 1 {
		return s[0].String()
	}
	parts := make([]string, 0, len(s))
	for _, v := range s {
		parts = append(parts, v.String())
	}
	if len(parts) > 6 {
		head := strings.Join(parts[:5], ", ")
		return head + ", ..., " + parts[len(parts)-1]
	}
	return strings.Join(parts, ", ")
}
