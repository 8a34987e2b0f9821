package skyframe

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/afbjorklund/bazel/events"
	"github.com/afbjorklund/bazel/label"
	"github.com/afbjorklund/bazel/packages"
	"github.com/afbjorklund/bazel/pkgcache"
)

// ErrInconsistentValue is wrapped by materialization errors when a label
// stored in a value cannot be resolved against the package provider. The
// label set is validated by the computation that produced the value, so an
// unresolvable label indicates a bug in that producer, not a condition a
// caller should recover from.
var ErrInconsistentValue = fmt.Errorf("inconsistent target pattern phase value")

// resolveConcurrency bounds the package lookups in flight during
// materialization.
const resolveConcurrency = 8

// TargetPatternPhaseValueOptions carries the result fields of a
// [TargetPatternPhaseValue]. All sets are copied on construction.
type TargetPatternPhaseValueOptions struct {
	// TargetLabels are the resolved target labels.
	TargetLabels label.Set
	// TestsToRunLabels are the labels of the tests to run. nil means test
	// determination was not requested; an empty set means it was requested
	// and no test matched.
	TestsToRunLabels label.Set
	// HasError reports an error during initial pattern resolution.
	HasError bool
	// HasPostExpansionError reports an error during a later expansion
	// stage, after the initial error check.
	HasPostExpansionError bool
	// RemovedTargetLabels are labels that appeared in the patterns but were
	// expanded away, kept for reporting only.
	RemovedTargetLabels label.Set
	// WorkspaceName is the resolved workspace name.
	WorkspaceName string
}

// TargetPatternPhaseValue is the memoized result of a target pattern
// resolution request. It stores labels only, never loaded targets: target
// objects belong to the separately cached package state and are materialized
// on demand through a [packages.Provider]. The value is immutable and safe
// for concurrent use.
type TargetPatternPhaseValue struct {
	targetLabels          label.Set
	testsToRunLabels      label.Set
	hasError              bool
	hasPostExpansionError bool
	removedTargetLabels   label.Set
	workspaceName         string
}

var (
	_ Value           = (*TargetPatternPhaseValue)(nil)
	_ NotSerializable = (*TargetPatternPhaseValue)(nil)
)

// NewTargetPatternPhaseValue creates a value from the resolution outcome.
func NewTargetPatternPhaseValue(opts TargetPatternPhaseValueOptions) *TargetPatternPhaseValue {
	v := &TargetPatternPhaseValue{
		targetLabels:          opts.TargetLabels.Clone(),
		testsToRunLabels:      opts.TestsToRunLabels.Clone(),
		hasError:              opts.HasError,
		hasPostExpansionError: opts.HasPostExpansionError,
		removedTargetLabels:   opts.RemovedTargetLabels.Clone(),
		workspaceName:         opts.WorkspaceName,
	}
	if v.targetLabels == nil {
		v.targetLabels = label.NewSet()
	}
	if v.removedTargetLabels == nil {
		v.removedTargetLabels = label.NewSet()
	}
	return v
}

// SkyValue implements the Value interface.
func (v *TargetPatternPhaseValue) SkyValue() {}

// TargetLabels returns the resolved target labels.
func (v *TargetPatternPhaseValue) TargetLabels() label.Set {
	return v.targetLabels.Clone()
}

// TestsToRunLabels returns the labels of the tests to run, or nil if test
// determination was not requested. A non-nil empty set means it was
// requested and no test matched.
func (v *TargetPatternPhaseValue) TestsToRunLabels() label.Set {
	return v.testsToRunLabels.Clone()
}

// HasError reports whether any error occurred during initial pattern
// resolution.
func (v *TargetPatternPhaseValue) HasError() bool {
	return v.hasError
}

// HasPostExpansionError reports whether an error occurred during a later
// expansion stage, after the initial error check.
func (v *TargetPatternPhaseValue) HasPostExpansionError() bool {
	return v.hasPostExpansionError
}

// RemovedTargetLabels returns the labels that were present in the patterns
// but expanded away, e.g. test suites when suite expansion is on.
func (v *TargetPatternPhaseValue) RemovedTargetLabels() label.Set {
	return v.removedTargetLabels.Clone()
}

// WorkspaceName returns the resolved workspace name.
func (v *TargetPatternPhaseValue) WorkspaceName() string {
	return v.workspaceName
}

// ResolveTargets materializes the target labels against the provider. The
// returned slice is sorted by label, so repeated calls against an unchanged
// provider return identical results. Any lookup failure wraps
// [ErrInconsistentValue]; cancellation additionally satisfies
// errors.Is(err, context.Canceled).
func (v *TargetPatternPhaseValue) ResolveTargets(ctx context.Context, handler events.Handler, provider packages.Provider) ([]*packages.Target, error) {
	return resolveLabels(ctx, handler, provider, v.targetLabels)
}

// ResolveRemovedTargets materializes the removed target labels, for
// reporting. Same failure policy as ResolveTargets.
func (v *TargetPatternPhaseValue) ResolveRemovedTargets(ctx context.Context, handler events.Handler, provider packages.Provider) ([]*packages.Target, error) {
	return resolveLabels(ctx, handler, provider, v.removedTargetLabels)
}

// ResolveTestsToRun materializes the tests-to-run labels, returning nil if
// test determination was not requested. Same failure policy as
// ResolveTargets.
func (v *TargetPatternPhaseValue) ResolveTestsToRun(ctx context.Context, handler events.Handler, provider packages.Provider) ([]*packages.Target, error) {
	return resolveLabels(ctx, handler, provider, v.testsToRunLabels)
}

// ToLoadingResult materializes the whole value into a
// [pkgcache.LoadingResult]: the targets always, the tests to run only when
// test determination was requested. The error flags and workspace name carry
// over unchanged. Callers that need only a subset should use the individual
// resolve methods instead.
func (v *TargetPatternPhaseValue) ToLoadingResult(ctx context.Context, handler events.Handler, provider packages.Provider) (*pkgcache.LoadingResult, error) {
	targets, err := v.ResolveTargets(ctx, handler, provider)
	if err != nil {
		return nil, err
	}
	testsToRun, err := v.ResolveTestsToRun(ctx, handler, provider)
	if err != nil {
		return nil, err
	}
	return pkgcache.NewLoadingResult(v.hasError, v.hasPostExpansionError, targets, testsToRun, v.workspaceName), nil
}

// resolveLabels looks up every label's package and extracts the named
// target, with bounded concurrency. A nil set resolves to nil, a non-nil
// empty set to a non-nil empty slice.
func resolveLabels(ctx context.Context, handler events.Handler, provider packages.Provider, labels label.Set) ([]*packages.Target, error) {
	if labels == nil {
		return nil, nil
	}
	sorted := labels.Slice()
	targets := make([]*packages.Target, len(sorted))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, lbl := range sorted {
		i, lbl := i, lbl
		g.Go(func() error {
			pkg, err := provider.GetPackage(ctx, handler, lbl.PackageIdentifier())
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", lbl, errors.Join(ErrInconsistentValue, err))
			}
			target, err := pkg.Target(lbl.Name())
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", lbl, errors.Join(ErrInconsistentValue, err))
			}
			targets[i] = target
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return targets, nil
}

// NotSerializable marks the value for persistence layers: it stores labels
// whose meaning depends on process-local package-loading state, so a
// generically persisted copy would be a semantically empty snapshot.
func (v *TargetPatternPhaseValue) NotSerializable() {}

// MarshalJSON always fails with [ErrNotSerializable].
func (v *TargetPatternPhaseValue) MarshalJSON() ([]byte, error) {
	return nil, notSerializableError("target pattern phase value")
}

// UnmarshalJSON always fails with [ErrNotSerializable].
func (v *TargetPatternPhaseValue) UnmarshalJSON([]byte) error {
	return notSerializableError("target pattern phase value")
}

// GobEncode always fails with [ErrNotSerializable].
func (v *TargetPatternPhaseValue) GobEncode() ([]byte, error) {
	return nil, notSerializableError("target pattern phase value")
}

// GobDecode always fails with [ErrNotSerializable].
func (v *TargetPatternPhaseValue) GobDecode([]byte) error {
	return notSerializableError("target pattern phase value")
}
