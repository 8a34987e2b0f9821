package packages

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/afbjorklund/bazel/events"
	"github.com/afbjorklund/bazel/label"
)

// InMemoryProvider is a Provider backed by a map. It serves embedders that
// load packages ahead of time, and tests.
type InMemoryProvider struct {
	mu   sync.RWMutex
	pkgs map[label.PackageIdentifier]*Package
}

var _ Provider = (*InMemoryProvider)(nil)

// NewInMemoryProvider creates a provider holding the given packages.
func NewInMemoryProvider(pkgs ...*Package) *InMemoryProvider {
	p := &InMemoryProvider{pkgs: make(map[label.PackageIdentifier]*Package, len(pkgs))}
	for _, pkg := range pkgs {
		p.pkgs[pkg.Identifier()] = pkg
	}
	return p
}

// Add registers a package, replacing any previous package with the same
// identifier.
func (p *InMemoryProvider) Add(pkg *Package) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pkgs[pkg.Identifier()] = pkg
}

// GetPackage implements the Provider interface.
func (p *InMemoryProvider) GetPackage(ctx context.Context, handler events.Handler, id label.PackageIdentifier) (*Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	pkg, ok := p.pkgs[id]
	p.mu.RUnlock()
	if !ok {
		handler.Handle(ctx, events.Error("package not found", slog.String("package", id.String())))
		return nil, fmt.Errorf("package %s: %w", id, ErrNoSuchPackage)
	}
	return pkg, nil
}
