package skyframe

import (
	"encoding/binary"
	"hash/fnv"
	"slices"
	"strings"

	"github.com/afbjorklund/bazel/pkgcache"
)

// TargetPatternPhaseKeyOptions carries the request fields of a
// [TargetPatternPhaseKey]. All slices are copied on construction.
type TargetPatternPhaseKeyOptions struct {
	// TargetPatterns are the command-line target patterns, in order. The
	// order affects reporting, not the resolved set.
	TargetPatterns []string
	// Offset is the working-directory-relative path prefix used to
	// interpret relative patterns; empty means none.
	Offset string
	// CompileOneDependency requests resolution of a rule depending on the
	// given source files instead of the files themselves.
	CompileOneDependency bool
	// BuildTestsOnly restricts resolution to test targets. Requires a
	// TestFilter.
	BuildTestsOnly bool
	// DetermineTests requests computation of the tests to run. Requires a
	// TestFilter.
	DetermineTests bool
	// BuildTargetFilter are the tag-based target filter strings, in order.
	BuildTargetFilter []string
	// BuildManualTests keeps targets tagged "manual" in the result.
	BuildManualTests bool
	// ExpandTestSuites replaces test suites with their constituent tests.
	ExpandTestSuites bool
	// TestFilter narrows the resolved test targets. May be nil unless
	// BuildTestsOnly or DetermineTests is set.
	TestFilter *pkgcache.TestFilter
}

// TargetPatternPhaseKey identifies a target pattern resolution request to
// the evaluation graph. It is a pure value object: construction performs no
// I/O, and the key is immutable and safe for concurrent use afterwards.
//
// Equality and hashing cover all nine fields. The debug rendering does not:
// see String.
type TargetPatternPhaseKey struct {
	targetPatterns       []string
	offset               string
	compileOneDependency bool
	buildTestsOnly       bool
	determineTests       bool
	buildTargetFilter    []string
	buildManualTests     bool
	expandTestSuites     bool
	testFilter           *pkgcache.TestFilter
}

var (
	_ Key             = (*TargetPatternPhaseKey)(nil)
	_ NotSerializable = (*TargetPatternPhaseKey)(nil)
)

// NewTargetPatternPhaseKey creates a key for the target pattern resolution
// computation. It panics if BuildTestsOnly or DetermineTests is set without
// a TestFilter; that is a programming error in the caller, not a reportable
// resolution failure.
func NewTargetPatternPhaseKey(opts TargetPatternPhaseKeyOptions) *TargetPatternPhaseKey {
	if (opts.BuildTestsOnly || opts.DetermineTests) && opts.TestFilter == nil {
		panic("skyframe: target pattern phase key requires a test filter when BuildTestsOnly or DetermineTests is set")
	}
	return &TargetPatternPhaseKey{
		targetPatterns:       slices.Clone(opts.TargetPatterns),
		offset:               opts.Offset,
		compileOneDependency: opts.CompileOneDependency,
		buildTestsOnly:       opts.BuildTestsOnly,
		determineTests:       opts.DetermineTests,
		buildTargetFilter:    slices.Clone(opts.BuildTargetFilter),
		buildManualTests:     opts.BuildManualTests,
		expandTestSuites:     opts.ExpandTestSuites,
		testFilter:           opts.TestFilter,
	}
}

// FunctionName implements the Key interface.
func (k *TargetPatternPhaseKey) FunctionName() FunctionName {
	return TargetPatternPhase
}

// TargetPatterns returns the target patterns in request order.
func (k *TargetPatternPhaseKey) TargetPatterns() []string {
	return slices.Clone(k.targetPatterns)
}

// Offset returns the relative-pattern offset, empty if none.
func (k *TargetPatternPhaseKey) Offset() string {
	return k.offset
}

// CompileOneDependency reports whether compile-one-dependency mode is set.
func (k *TargetPatternPhaseKey) CompileOneDependency() bool {
	return k.compileOneDependency
}

// BuildTestsOnly reports whether resolution is restricted to test targets.
func (k *TargetPatternPhaseKey) BuildTestsOnly() bool {
	return k.buildTestsOnly
}

// DetermineTests reports whether the tests to run are computed.
func (k *TargetPatternPhaseKey) DetermineTests() bool {
	return k.determineTests
}

// BuildTargetFilter returns the target filter strings in request order.
func (k *TargetPatternPhaseKey) BuildTargetFilter() []string {
	return slices.Clone(k.buildTargetFilter)
}

// BuildManualTests reports whether targets tagged "manual" are kept.
func (k *TargetPatternPhaseKey) BuildManualTests() bool {
	return k.buildManualTests
}

// ExpandTestSuites reports whether test suites are expanded.
func (k *TargetPatternPhaseKey) ExpandTestSuites() bool {
	return k.expandTestSuites
}

// TestFilter returns the test filter, nil if none was required.
func (k *TargetPatternPhaseKey) TestFilter() *pkgcache.TestFilter {
	return k.testFilter
}

// Equal implements the Key interface. It compares all nine fields; the test
// filter is compared by its own value semantics.
func (k *TargetPatternPhaseKey) Equal(other Key) bool {
	o, ok := other.(*TargetPatternPhaseKey)
	if !ok {
		return false
	}
	if k == o {
		return true
	}
	return slices.Equal(k.targetPatterns, o.targetPatterns) &&
		k.offset == o.offset &&
		k.compileOneDependency == o.compileOneDependency &&
		k.buildTestsOnly == o.buildTestsOnly &&
		k.determineTests == o.determineTests &&
		slices.Equal(k.buildTargetFilter, o.buildTargetFilter) &&
		k.buildManualTests == o.buildManualTests &&
		k.expandTestSuites == o.expandTestSuites &&
		k.testFilter.Equal(o.testFilter)
}

// CanonicalHashV1 implements the Key interface. The hash covers the same
// nine fields as Equal through an injective field encoding, so equal keys
// always hash equal.
func (k *TargetPatternPhaseKey) CanonicalHashV1() uint64 {
	h := fnv.New64()
	write := func(s string) {
		// fnv64 can never fail to write
		_ = binary.Write(h, binary.LittleEndian, uint64(len(s)))
		_, _ = h.Write([]byte(s))
	}
	writeBool := func(b bool) {
		var v byte
		if b {
			v = 1
		}
		_, _ = h.Write([]byte{v})
	}
	_ = binary.Write(h, binary.LittleEndian, uint64(len(k.targetPatterns)))
	for _, p := range k.targetPatterns {
		write(p)
	}
	write(k.offset)
	writeBool(k.compileOneDependency)
	writeBool(k.buildTestsOnly)
	writeBool(k.determineTests)
	_ = binary.Write(h, binary.LittleEndian, uint64(len(k.buildTargetFilter)))
	for _, f := range k.buildTargetFilter {
		write(f)
	}
	writeBool(k.buildManualTests)
	writeBool(k.expandTestSuites)
	writeBool(k.testFilter != nil)
	if k.testFilter != nil {
		_ = binary.Write(h, binary.LittleEndian, k.testFilter.CanonicalHashV1())
	}
	return h.Sum64()
}

// String implements the Key interface. The rendering lists the patterns, the
// offset when non-empty, the active mode flags by name and the test filter's
// own rendering. BuildManualTests is intentionally absent: downstream log
// matching depends on this format, and the rendering is for humans while
// Equal and CanonicalHashV1 are the identity surface.
func (k *TargetPatternPhaseKey) String() string {
	var sb strings.Builder
	sb.WriteString("[" + strings.Join(k.targetPatterns, ", ") + "]")
	if k.offset != "" {
		sb.WriteString(" OFFSET=" + k.offset)
	}
	if k.compileOneDependency {
		sb.WriteString(" COMPILE_ONE_DEPENDENCY")
	}
	if k.buildTestsOnly {
		sb.WriteString(" BUILD_TESTS_ONLY")
	}
	if k.determineTests {
		sb.WriteString(" DETERMINE_TESTS")
	}
	if k.expandTestSuites {
		sb.WriteString(" EXPAND_TEST_SUITES")
	}
	if k.testFilter != nil {
		sb.WriteString(" " + k.testFilter.String())
	}
	return sb.String()
}

// NotSerializable marks the key for persistence layers: its test filter
// holds compiled state and its meaning is tied to process-local loading
// state, so a generically persisted copy would not be a faithful request.
func (k *TargetPatternPhaseKey) NotSerializable() {}

// MarshalJSON always fails with [ErrNotSerializable].
func (k *TargetPatternPhaseKey) MarshalJSON() ([]byte, error) {
	return nil, notSerializableError("target pattern phase key")
}

// UnmarshalJSON always fails with [ErrNotSerializable].
func (k *TargetPatternPhaseKey) UnmarshalJSON([]byte) error {
	return notSerializableError("target pattern phase key")
}

// GobEncode always fails with [ErrNotSerializable].
func (k *TargetPatternPhaseKey) GobEncode() ([]byte, error) {
	return nil, notSerializableError("target pattern phase key")
}

// GobDecode always fails with [ErrNotSerializable].
func (k *TargetPatternPhaseKey) GobDecode([]byte) error {
	return notSerializableError("target pattern phase key")
}
