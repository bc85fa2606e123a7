package registry

import (
	"context"
	"errors"
	"io"

	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/grip/internal/core/ports"
	"go.trai.ch/zerr"
)

// Ordered multiplexes several registries in a fixed priority order: the
// first registry that knows a package name answers for it. An empty chain
// is the "skip all registries" mode, where only pins and path
// dependencies can resolve.
type Ordered struct {
	registries []ports.RegistryClient
}

// NewOrdered creates a fixed-order multiplexer.
func NewOrdered(registries ...ports.RegistryClient) *Ordered {
	return &Ordered{registries: registries}
}

// ListVersions asks each registry in order, returning the first answer.
func (o *Ordered) ListVersions(ctx context.Context, name domain.PackageName) ([]domain.Version, error) {
	for _, reg := range o.registries {
		versions, err := reg.ListVersions(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrPackageNotFound) {
				continue
			}
			return nil, err
		}
		return versions, nil
	}
	return nil, zerr.With(domain.ErrPackageNotFound, "package", name.String())
}

// FetchRecipe asks each registry in order. A registry that carries the
// name answers for every version of it; only a registry that does not
// know the name at all defers to the next one, so one package never
// mixes registries.
func (o *Ordered) FetchRecipe(ctx context.Context, name domain.PackageName, version domain.Version) (*domain.Recipe, error) {
	for _, reg := range o.registries {
		rec, err := reg.FetchRecipe(ctx, name, version)
		if err != nil {
			if errors.Is(err, domain.ErrPackageNotFound) {
				continue
			}
			return nil, err
		}
		return rec, nil
	}
	return nil, zerr.With(domain.ErrPackageNotFound, "package", name.String())
}

// FetchArchive asks each registry in order, with the same name-claiming
// rule as FetchRecipe.
func (o *Ordered) FetchArchive(ctx context.Context, name domain.PackageName, version domain.Version) (io.ReadCloser, error) {
	for _, reg := range o.registries {
		body, err := reg.FetchArchive(ctx, name, version)
		if err != nil {
			if errors.Is(err, domain.ErrPackageNotFound) {
				continue
			}
			return nil, err
		}
		return body, nil
	}
	return nil, zerr.With(domain.ErrPackageNotFound, "package", name.String())
}
