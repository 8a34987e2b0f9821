// Package pkgcache holds the collaborator types the resolution core shares
// with the loading phase: the test filter that narrows resolved test targets
// and the aggregate result of materializing a resolution.
package pkgcache

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/afbjorklund/bazel/packages"
)

// TestFilterOptions are the raw filter strings a TestFilter is built from.
// Every list supports exclusion through a "-" prefix on an entry.
type TestFilterOptions struct {
	// TagFilters narrows by target tags, e.g. "smoke" or "-flaky".
	TagFilters []string
	// SizeFilters narrows by declared test size, e.g. "small".
	SizeFilters []string
	// TimeoutFilters narrows by declared test timeout, e.g. "short".
	TimeoutFilters []string
	// LangFilters narrows by rule language, e.g. "go" or "-java".
	LangFilters []string
	// NameFilters narrows by target name using glob patterns, e.g. "*_unit".
	NameFilters []string
}

// TestFilter selects test targets by tags, size, timeout, language and name
// patterns. It has value semantics over its input strings: two filters built
// from equal option strings compare equal regardless of when or where they
// were compiled. Filters are immutable and safe for concurrent use.
type TestFilter struct {
	tagFilters     []string
	sizeFilters    []string
	timeoutFilters []string
	langFilters    []string
	nameFilters    []string

	nameIncludes []glob.Glob
	nameExcludes []glob.Glob
}

// NewTestFilter builds a TestFilter, compiling the name patterns eagerly so
// malformed globs surface here rather than at match time.
func NewTestFilter(opts TestFilterOptions) (*TestFilter, error) {
	f := &TestFilter{
		tagFilters:     normalize(opts.TagFilters),
		sizeFilters:    normalize(opts.SizeFilters),
		timeoutFilters: normalize(opts.TimeoutFilters),
		langFilters:    normalize(opts.LangFilters),
		nameFilters:    normalize(opts.NameFilters),
	}
	for _, pattern := range f.nameFilters {
		pattern, excluded := strings.CutPrefix(pattern, "-")
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile test name pattern %q: %w", pattern, err)
		}
		if excluded {
			f.nameExcludes = append(f.nameExcludes, g)
		} else {
			f.nameIncludes = append(f.nameIncludes, g)
		}
	}
	return f, nil
}

func normalize(filters []string) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Match reports whether the target passes the filter. Non-test rules never
// match.
func (f *TestFilter) Match(t *packages.Target) bool {
	if !t.IsTestRule() {
		return false
	}
	if !matchAttr(f.sizeFilters, t.Size) {
		return false
	}
	if !matchAttr(f.timeoutFilters, t.Timeout) {
		return false
	}
	if !matchAttr(f.langFilters, t.Language()) {
		return false
	}
	if !f.matchTags(t) {
		return false
	}
	return f.matchName(t.Label.Name())
}

// matchAttr applies include/exclude entries to a single-valued attribute:
// the value must not be excluded, and must be present in the include list if
// one exists.
func matchAttr(filters []string, value string) bool {
	required := false
	found := false
	for _, entry := range filters {
		if excluded, ok := strings.CutPrefix(entry, "-"); ok {
			if excluded == value {
				return false
			}
			continue
		}
		required = true
		if entry == value {
			found = true
		}
	}
	return !required || found
}

// matchTags requires that no excluded tag is present and, if any tag is
// required, that at least one of them is.
func (f *TestFilter) matchTags(t *packages.Target) bool {
	required := false
	found := false
	for _, entry := range f.tagFilters {
		if excluded, ok := strings.CutPrefix(entry, "-"); ok {
			if t.HasTag(excluded) {
				return false
			}
			continue
		}
		required = true
		if t.HasTag(entry) {
			found = true
		}
	}
	return !required || found
}

func (f *TestFilter) matchName(name string) bool {
	for _, g := range f.nameExcludes {
		if g.Match(name) {
			return false
		}
	}
	if len(f.nameIncludes) == 0 {
		return true
	}
	for _, g := range f.nameIncludes {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Equal reports whether two filters were built from equal input strings. A
// nil filter is only equal to another nil filter.
func (f *TestFilter) Equal(o *TestFilter) bool {
	if f == nil || o == nil {
		return f == o
	}
	return slices.Equal(f.tagFilters, o.tagFilters) &&
		slices.Equal(f.sizeFilters, o.sizeFilters) &&
		slices.Equal(f.timeoutFilters, o.timeoutFilters) &&
		slices.Equal(f.langFilters, o.langFilters) &&
		slices.Equal(f.nameFilters, o.nameFilters)
}

// CanonicalHashV1 is a stable, non-cryptographic hash over the filter's
// input strings, backed by FNV. Equal filters always hash equal.
func (f *TestFilter) CanonicalHashV1() uint64 {
	h := fnv.New64()
	for _, group := range [][]string{f.tagFilters, f.sizeFilters, f.timeoutFilters, f.langFilters, f.nameFilters} {
		// fnv64 can never fail to write
		_ = binary.Write(h, binary.LittleEndian, uint64(len(group)))
		for _, entry := range group {
			_ = binary.Write(h, binary.LittleEndian, uint64(len(entry)))
			_, _ = h.Write([]byte(entry))
		}
	}
	return h.Sum64()
}

// String renders the non-empty filter groups for diagnostics.
func (f *TestFilter) String() string {
	var parts []string
	for _, group := range []struct {
		name    string
		filters []string
	}{
		{"tag", f.tagFilters},
		{"size", f.sizeFilters},
		{"timeout", f.timeoutFilters},
		{"lang", f.langFilters},
		{"name", f.nameFilters},
	} {
		if len(group.filters) > 0 {
			parts = append(parts, group.name+"=["+strings.Join(group.filters, ",")+"]")
		}
	}
	return "TestFilter{" + strings.Join(parts, " ") + "}"
}
