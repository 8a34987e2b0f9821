package packages

import (
	"context"

	"github.com/afbjorklund/bazel/events"
	"github.com/afbjorklund/bazel/label"
)

// Provider is the boundary to the package-loading subsystem. Implementations
// own their caching and invalidation; callers may invoke GetPackage many
// times for the same identifier and must be prepared for the result to
// change if the underlying package state changed in between.
type Provider interface {
	// GetPackage returns the package for the given identifier, reporting
	// diagnostics through the handler. It fails with an error wrapping
	// [ErrNoSuchPackage] if no such package exists, or with the context
	// error if loading was cancelled.
	GetPackage(ctx context.Context, handler events.Handler, id label.PackageIdentifier) (*Package, error)
}
