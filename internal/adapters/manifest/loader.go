// Package manifest reads and writes grip.json package manifests.
package manifest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/zerr"
)

// Loader implements ports.ManifestLoader for grip.json files.
type Loader struct{}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and validates the recipe at dir/grip.json. Relative path
// dependencies are resolved against dir so the rest of the core only ever
// sees absolute paths.
func (l *Loader) Load(dir string) (*domain.Recipe, error) {
	path := domain.RecipePath(dir)
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by trusted caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(domain.ErrRecipeNotFound, "path", path)
		}
		return nil, zerr.Wrap(err, "failed to read manifest")
	}
	rec, err := Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	resolvePaths(rec, dir)
	if err := rec.Validate(); err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return rec, nil
}

// Parse decodes a grip.json document into a domain recipe. Path
// dependencies stay as written; callers that know the manifest's
// directory resolve them via Load.
func Parse(data []byte) (*domain.Recipe, error) {
	var dto recipeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, zerr.Wrap(err, domain.ErrInvalidRecipe.Error())
	}
	return toDomain(dto, domain.PackageName{}, domain.Version{})
}

// Encode renders a recipe back to its grip.json form.
func Encode(rec *domain.Recipe) ([]byte, error) {
	data, err := json.MarshalIndent(fromDomain(rec), "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode manifest")
	}
	return append(data, '\n'), nil
}

func toDomain(dto recipeDTO, parent domain.PackageName, parentVersion domain.Version) (*domain.Recipe, error) {
	name := domain.Name(dto.Name)
	version := parentVersion
	if !parent.IsZero() {
		// Subpackage manifests use short names scoped under the parent
		// and always share the parent's version.
		name = domain.Name(parent.String() + domain.SubpackageSeparator + dto.Name)
	}
	if dto.Version != "" {
		v, err := domain.ParseVersion(dto.Version)
		if err != nil {
			return nil, zerr.With(err, "package", name.String())
		}
		version = v
	}

	rec := &domain.Recipe{
		Name:    name,
		Version: version,
	}

	if len(dto.Dependencies) > 0 {
		rec.Dependencies = make(map[domain.PackageName]domain.DependencySpec, len(dto.Dependencies))
		for depName, depDTO := range dto.Dependencies {
			spec, err := domain.ParseVersionSpec(depDTO.Version)
			if err != nil {
				err = zerr.With(err, "package", name.String())
				return nil, zerr.With(err, "dependency", depName)
			}
			rec.Dependencies[domain.Name(depName)] = domain.DependencySpec{
				Spec:     spec,
				Optional: depDTO.Optional,
				Default:  depDTO.Default,
				Path:     depDTO.Path,
			}
		}
	}

	for _, subDTO := range dto.SubPackages {
		sub, err := toDomain(subDTO, name, version)
		if err != nil {
			return nil, err
		}
		rec.Subpackages = append(rec.Subpackages, sub)
	}

	for _, cfgDTO := range dto.Configurations {
		cfg := domain.Configuration{Name: cfgDTO.Name}
		for _, dep := range cfgDTO.Dependencies {
			cfg.Dependencies = append(cfg.Dependencies, domain.Name(dep))
		}
		rec.Configurations = append(rec.Configurations, cfg)
	}

	return rec, nil
}

// resolvePaths rewrites relative path dependencies to absolute ones,
// anchored at the manifest's directory.
func resolvePaths(rec *domain.Recipe, dir string) {
	for name, dep := range rec.Dependencies {
		if dep.Path != "" && !filepath.IsAbs(dep.Path) {
			dep.Path = filepath.Join(dir, dep.Path)
			rec.Dependencies[name] = dep
		}
	}
	for _, sub := range rec.Subpackages {
		resolvePaths(sub, dir)
	}
}
