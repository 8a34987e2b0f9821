package label

import (
	"slices"
	"strings"
)

// Set is an unordered collection of unique labels. A nil Set and an empty Set
// are distinct values: callers use nil to signal "no set at all" as opposed
// to "a set with no members".
type Set map[Label]struct{}

// NewSet creates a non-nil Set holding the given labels. Duplicates collapse.
func NewSet(labels ...Label) Set {
	s := make(Set, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(l Label) bool {
	_, ok := s[l]
	return ok
}

// Len returns the number of labels in the set.
func (s Set) Len() int {
	return len(s)
}

// Equal reports whether two sets have the same members. A nil set is only
// equal to another nil set.
func (s Set) Equal(o Set) bool {
	if s == nil || o == nil {
		return (s == nil) == (o == nil)
	}
	if len(s) != len(o) {
		return false
	}
	for l := range s {
		if _, ok := o[l]; !ok {
			return false
		}
	}
	return true
}

// Clone creates a copy of the set. Cloning nil returns nil.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	c := make(Set, len(s))
	for l := range s {
		c[l] = struct{}{}
	}
	return c
}

// Slice returns the members sorted by their canonical string form, so
// repeated calls on equal sets produce identical slices.
func (s Set) Slice() []Label {
	out := make([]Label, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Label) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// String renders the sorted members separated by commas, for diagnostics.
func (s Set) String() string {
	parts := make([]string, 0, len(s))
	for _, l := range s.Slice() {
		parts = append(parts, l.String())
	}
	return strings.Join(parts, ", ")
}
