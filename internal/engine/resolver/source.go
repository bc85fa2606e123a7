package resolver

import (
	"context"
	"errors"

	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/grip/internal/core/ports"
	"go.trai.ch/zerr"
)

// SourceChain tries recipe sources in order, falling through on
// ErrRecipeNotFound. The usual chain is path directories, then the
// package cache; the registry stays the resolver's last resort.
type SourceChain []ports.RecipeSource

// Recipe returns the first source's answer.
func (c SourceChain) Recipe(ctx context.Context, name domain.PackageName, sel domain.SelectedVersion) (*domain.Recipe, error) {
	for _, src := range c {
		rec, err := src.Recipe(ctx, name, sel)
		if err != nil {
			if errors.Is(err, domain.ErrRecipeNotFound) {
				continue
			}
			return nil, err
		}
		return rec, nil
	}
	return nil, zerr.With(domain.ErrRecipeNotFound, "package", name.String())
}
