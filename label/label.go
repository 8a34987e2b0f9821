// Package label provides the identifiers used to name build targets and the
// packages that own them. A Label is a lightweight value; it never holds a
// reference to the loaded package or target it names.
package label

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// ErrInvalidLabel is returned when a label string cannot be parsed.
var ErrInvalidLabel = fmt.Errorf("invalid label")

// PackageIdentifier names a package by its workspace-relative path. The empty
// path names the workspace root package.
type PackageIdentifier struct {
	path string
}

// NewPackageIdentifier creates a PackageIdentifier for the given
// workspace-relative path without validation.
func NewPackageIdentifier(path string) PackageIdentifier {
	return PackageIdentifier{path: path}
}

// Path returns the workspace-relative package path.
func (p PackageIdentifier) Path() string {
	return p.path
}

// String renders the identifier in its canonical form, e.g. "//path/to/pkg".
func (p PackageIdentifier) String() string {
	return "//" + p.path
}

// Equal reports whether two package identifiers name the same package.
func (p PackageIdentifier) Equal(o PackageIdentifier) bool {
	return p == o
}

// Label uniquely identifies a target: the package that owns it plus the
// target name within that package. Labels are comparable and can be used as
// map keys directly.
type Label struct {
	pkg  string
	name string
}

// New creates a Label from a package identifier and a target name.
func New(pkg PackageIdentifier, name string) (Label, error) {
	if name == "" {
		return Label{}, fmt.Errorf("empty target name in package %s: %w", pkg, ErrInvalidLabel)
	}
	return Label{pkg: pkg.path, name: name}, nil
}

// Parse parses a label in canonical form, e.g. "//path/to/pkg:name". The
// shorthand "//path/to/pkg" names the target called after the last path
// segment, so "//foo/bar" is equivalent to "//foo/bar:bar". Parse does not
// accept wildcard patterns; pattern expansion happens before labels reach
// this package.
func Parse(s string) (Label, error) {
	rest, ok := strings.CutPrefix(s, "//")
	if !ok {
		return Label{}, fmt.Errorf("label %q must start with //: %w", s, ErrInvalidLabel)
	}
	pkg, name, hasName := strings.Cut(rest, ":")
	if strings.Contains(name, ":") {
		return Label{}, fmt.Errorf("label %q contains more than one colon: %w", s, ErrInvalidLabel)
	}
	if !hasName {
		if pkg == "" {
			return Label{}, fmt.Errorf("label %q names no target: %w", s, ErrInvalidLabel)
		}
		name = pkg[strings.LastIndex(pkg, "/")+1:]
	}
	if name == "" {
		return Label{}, fmt.Errorf("label %q has an empty target name: %w", s, ErrInvalidLabel)
	}
	if strings.HasPrefix(pkg, "/") || strings.HasSuffix(pkg, "/") || strings.Contains(pkg, "//") {
		return Label{}, fmt.Errorf("label %q has a malformed package path: %w", s, ErrInvalidLabel)
	}
	return Label{pkg: pkg, name: name}, nil
}

// MustParse is like Parse but panics on malformed input. It should only be
// used on labels known to be valid, typically literals in tests.
func MustParse(s string) Label {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// PackageIdentifier returns the identifier of the package owning the target.
func (l Label) PackageIdentifier() PackageIdentifier {
	return PackageIdentifier{path: l.pkg}
}

// Name returns the target name within its package.
func (l Label) Name() string {
	return l.name
}

// String renders the label in canonical form, e.g. "//path/to/pkg:name".
// The shorthand form is never produced on output.
func (l Label) String() string {
	return "//" + l.pkg + ":" + l.name
}

// Equal reports whether two labels name the same target.
func (l Label) Equal(o Label) bool {
	return l == o
}

// CanonicalHashV1 is a stable, non-cryptographic hash of the label backed by
// FNV. Equal labels always hash equal.
func (l Label) CanonicalHashV1() uint64 {
	h := fnv.New64()
	// fnv64 can never fail to write
	_, _ = h.Write([]byte(l.pkg))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(l.name))
	return h.Sum64()
}
