// Package skyframe defines the cache-entry contract of the incremental
// evaluation graph: keys that canonically identify a computation request and
// values that hold its memoized result. The graph engine that schedules and
// recomputes entries lives outside this package; it relies on stable key
// equality, hashing and function-name dispatch provided here.
package skyframe

import "fmt"

// FunctionName identifies the computation that produces a value for a key.
// The engine dispatches on it; it is constant per key type, never derived
// from key data.
type FunctionName string

// TargetPatternPhase is the function name of the target pattern resolution
// computation.
const TargetPatternPhase FunctionName = "TARGET_PATTERN_PHASE"

// Key canonically identifies a computation request. Keys are immutable and
// safe for concurrent use. Key identity is the sole cache-lookup mechanism:
// two semantically different requests must never compare equal, and two
// semantically identical requests must never compare different.
type Key interface {
	fmt.Stringer

	// FunctionName returns the name of the computation this key requests.
	FunctionName() FunctionName

	// Equal reports structural equality with another key. Keys of
	// different concrete types are never equal.
	Equal(other Key) bool

	// CanonicalHashV1 is a stable, non-cryptographic hash of the key.
	// Equal keys always hash equal; the reverse does not hold, so cache
	// implementations must disambiguate hash collisions through Equal.
	CanonicalHashV1() uint64
}

// Value is the memoized result of a computation. Values are immutable and
// safe for concurrent use.
type Value interface {
	// SkyValue is a marker method.
	SkyValue()
}
