package manifest

import (
	"context"
	"errors"

	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/zerr"
)

// PathSource implements ports.RecipeSource for path-pinned selections by
// reading the recipe straight from the dependency's directory.
type PathSource struct {
	loader *Loader
}

// NewPathSource creates a path-backed recipe source.
func NewPathSource() *PathSource {
	return &PathSource{loader: NewLoader()}
}

// Recipe loads the recipe of a path selection. Non-path selections defer
// to the next source; a path without a recipe is a fatal
// ErrMissingPathDependency.
func (s *PathSource) Recipe(_ context.Context, name domain.PackageName, sel domain.SelectedVersion) (*domain.Recipe, error) {
	if !sel.IsPath() {
		return nil, zerr.With(domain.ErrRecipeNotFound, "package", name.String())
	}
	rec, err := s.loader.Load(sel.Path)
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			wrapped := zerr.With(domain.ErrMissingPathDependency, "package", name.String())
			return nil, zerr.With(wrapped, "path", sel.Path)
		}
		return nil, err
	}
	if rec.Name.Base() != name.Base() {
		wrapped := zerr.With(domain.ErrMissingPathDependency, "package", name.String())
		wrapped = zerr.With(wrapped, "path", sel.Path)
		return nil, zerr.With(wrapped, "reason", "directory contains recipe for "+rec.Name.String())
	}
	return rec, nil
}
