package pkgcache

import (
	"slices"

	"github.com/afbjorklund/bazel/packages"
)

// LoadingResult is the fully materialized outcome of a target pattern
// resolution: the resolved targets, the tests to run if test determination
// was requested, and the error flags of the two resolution stages.
// LoadingResult is immutable.
type LoadingResult struct {
	hasError              bool
	hasPostExpansionError bool
	targets               []*packages.Target
	testsToRun            []*packages.Target
	workspaceName         string
}

// NewLoadingResult creates a LoadingResult. A nil testsToRun means test
// determination was not requested, which is distinct from an empty slice
// meaning no test matched.
func NewLoadingResult(hasError, hasPostExpansionError bool, targets, testsToRun []*packages.Target, workspaceName string) *LoadingResult {
	return &LoadingResult{
		hasError:              hasError,
		hasPostExpansionError: hasPostExpansionError,
		targets:               slices.Clone(targets),
		testsToRun:            slices.Clone(testsToRun),
		workspaceName:         workspaceName,
	}
}

// HasError reports whether any error occurred during initial pattern
// resolution.
func (r *LoadingResult) HasError() bool {
	return r.hasError
}

// HasPostExpansionError reports whether an error occurred after the initial
// error check, during test suite expansion.
func (r *LoadingResult) HasPostExpansionError() bool {
	return r.hasPostExpansionError
}

// Targets returns the resolved targets.
func (r *LoadingResult) Targets() []*packages.Target {
	return slices.Clone(r.targets)
}

// TestsToRun returns the resolved tests to run, or nil if test determination
// was not requested.
func (r *LoadingResult) TestsToRun() []*packages.Target {
	return slices.Clone(r.testsToRun)
}

// WorkspaceName returns the resolved workspace name.
func (r *LoadingResult) WorkspaceName() string {
	return r.workspaceName
}
