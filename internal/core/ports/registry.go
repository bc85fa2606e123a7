// Package ports defines the boundary interfaces between the resolution
// core and its adapters.
package ports

import (
	"context"
	"io"

	"go.trai.ch/grip/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks

// RegistryClient is a source of published package versions, recipes and
// archives. Implementations may be HTTP-backed or read a local directory;
// multiple registries are consulted in a fixed priority order.
type RegistryClient interface {
	// ListVersions returns every published version of the package.
	// Returns ErrPackageNotFound when the registry does not know the name.
	ListVersions(ctx context.Context, name domain.PackageName) ([]domain.Version, error)

	// FetchRecipe returns the recipe of one published version.
	FetchRecipe(ctx context.Context, name domain.PackageName, version domain.Version) (*domain.Recipe, error)

	// FetchArchive streams the package archive (tar.gz) of one published
	// version. The caller closes the stream.
	FetchArchive(ctx context.Context, name domain.PackageName, version domain.Version) (io.ReadCloser, error)
}

// RecipeSource resolves the recipe of a concrete, already-pinned version
// without listing or network access (path dependencies, the package
// cache). Returns ErrRecipeNotFound when the recipe is not locally
// available.
type RecipeSource interface {
	Recipe(ctx context.Context, name domain.PackageName, version domain.SelectedVersion) (*domain.Recipe, error)
}
