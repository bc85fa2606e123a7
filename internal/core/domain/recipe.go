package domain

import (
	"go.trai.ch/zerr"
)

// Configuration is a named build configuration of a recipe. Listing an
// optional dependency in a configuration activates it.
type Configuration struct {
	// Name identifies the configuration (e.g. "default", "with-tls").
	Name string

	// Dependencies lists the package names the configuration activates.
	Dependencies []PackageName
}

// Recipe is the in-memory form of one package manifest: its identity, its
// declared dependencies and the subpackages it contains.
type Recipe struct {
	// Name is the package name. For subpackage recipes this is the full
	// "parent:sub" name.
	Name PackageName

	// Version is the package's own version. Subpackage recipes share
	// their parent's version.
	Version Version

	// Dependencies maps dependency names to their declared specs.
	Dependencies map[PackageName]DependencySpec

	// Subpackages holds the recipes of the package's subpackages. They
	// are always pinned to the parent's version, never resolved
	// independently.
	Subpackages []*Recipe

	// Configurations lists the recipe's build configurations.
	Configurations []Configuration
}

// Validate checks structural invariants: a non-empty name, a version,
// subpackage names scoped under the parent, and configurations that only
// reference declared dependencies.
func (r *Recipe) Validate() error {
	if r.Name.IsZero() || r.Name.String() == "" {
		return zerr.With(ErrInvalidRecipe, "reason", "recipe has no name")
	}
	if r.Version.IsZero() {
		return zerr.With(zerr.With(ErrInvalidRecipe, "package", r.Name.String()), "reason", "recipe has no version")
	}
	for _, sub := range r.Subpackages {
		if sub.Name.Base() != r.Name.Base() {
			err := zerr.With(ErrInvalidRecipe, "package", r.Name.String())
			err = zerr.With(err, "subpackage", sub.Name.String())
			return zerr.With(err, "reason", "subpackage name is not scoped under its parent")
		}
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	for _, cfg := range r.Configurations {
		for _, dep := range cfg.Dependencies {
			if _, ok := r.Dependencies[dep]; !ok {
				err := zerr.With(ErrInvalidRecipe, "package", r.Name.String())
				err = zerr.With(err, "configuration", cfg.Name)
				err = zerr.With(err, "dependency", dep.String())
				return zerr.With(err, "reason", "configuration references an undeclared dependency")
			}
		}
	}
	return nil
}

// Subpackage returns the recipe of the named subpackage, or nil.
func (r *Recipe) Subpackage(name PackageName) *Recipe {
	for _, sub := range r.Subpackages {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

// ActivatedBy reports whether any configuration of the recipe lists the
// given dependency name, activating it if the dependency is optional.
func (r *Recipe) ActivatedBy(name PackageName) bool {
	for _, cfg := range r.Configurations {
		for _, dep := range cfg.Dependencies {
			if dep == name {
				return true
			}
		}
	}
	return false
}

// DependencyNames returns the declared dependency names in lexicographic
// order.
func (r *Recipe) DependencyNames() []PackageName {
	names := make([]PackageName, 0, len(r.Dependencies))
	for name := range r.Dependencies {
		names = append(names, name)
	}
	return SortNames(names)
}
