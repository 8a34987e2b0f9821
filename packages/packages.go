// Package packages defines the loaded-package model and the boundary to the
// package-loading subsystem. The resolution core only ever holds labels; it
// reaches through a [Provider] to turn them into targets on demand.
package packages

import (
	"fmt"
	"slices"
	"strings"

	"github.com/afbjorklund/bazel/label"
)

var (
	// ErrNoSuchPackage is returned when a provider cannot find a package.
	ErrNoSuchPackage = fmt.Errorf("no such package")
	// ErrNoSuchTarget is returned when a package holds no target of the
	// requested name.
	ErrNoSuchTarget = fmt.Errorf("no such target")
	// ErrDuplicateTarget is returned when a package is built with two
	// targets of the same name.
	ErrDuplicateTarget = fmt.Errorf("duplicate target")
)

// Target is a concrete build unit owned by a package. Targets are immutable
// after package construction.
type Target struct {
	// Label names this target.
	Label label.Label
	// RuleClass is the kind of rule that declared the target, e.g.
	// "go_library" or "sh_test".
	RuleClass string
	// Tags are the free-form tags on the target, e.g. "manual".
	Tags []string
	// TestOnly marks targets that may only be depended on by tests.
	TestOnly bool
	// Size is the declared test size, empty for non-test rules.
	Size string
	// Timeout is the declared test timeout, empty for non-test rules.
	Timeout string
}

// IsTestRule reports whether the target is a test, derived from the rule
// class suffix.
func (t *Target) IsTestRule() bool {
	return strings.HasSuffix(t.RuleClass, "_test")
}

// HasTag reports whether the target carries the given tag.
func (t *Target) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// Language returns the rule language, i.e. the rule class with its
// "_test"/"_library"/"_binary" suffix removed.
func (t *Target) Language() string {
	for _, suffix := range []string{"_test", "_library", "_binary"} {
		if lang, ok := strings.CutSuffix(t.RuleClass, suffix); ok {
			return lang
		}
	}
	return t.RuleClass
}

// Package is a loaded collection of targets sharing a build file. Packages
// are immutable after construction.
type Package struct {
	id            label.PackageIdentifier
	workspaceName string
	targets       map[string]*Target
}

// NewPackage creates a package from its targets. Every target must belong to
// the package being built.
func NewPackage(id label.PackageIdentifier, workspaceName string, targets ...*Target) (*Package, error) {
	byName := make(map[string]*Target, len(targets))
	for _, t := range targets {
		if !t.Label.PackageIdentifier().Equal(id) {
			return nil, fmt.Errorf("target %s does not belong to package %s", t.Label, id)
		}
		name := t.Label.Name()
		if _, ok := byName[name]; ok {
			return nil, fmt.Errorf("target %q in package %s: %w", name, id, ErrDuplicateTarget)
		}
		byName[name] = t
	}
	return &Package{id: id, workspaceName: workspaceName, targets: byName}, nil
}

// Identifier returns the identifier of this package.
func (p *Package) Identifier() label.PackageIdentifier {
	return p.id
}

// WorkspaceName returns the name of the workspace the package was loaded in.
func (p *Package) WorkspaceName() string {
	return p.workspaceName
}

// Target returns the target of the given name, or an error wrapping
// [ErrNoSuchTarget].
func (p *Package) Target(name string) (*Target, error) {
	t, ok := p.targets[name]
	if !ok {
		return nil, fmt.Errorf("target %q in package %s: %w", name, p.id, ErrNoSuchTarget)
	}
	return t, nil
}

// Targets returns all targets sorted by name.
func (p *Package) Targets() []*Target {
	out := make([]*Target, 0, len(p.targets))
	for _, t := range p.targets {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Target) int {
		return strings.Compare(a.Label.Name(), b.Label.Name())
	})
	return out
}
