// Package lockfile persists the resolver's output as a selections file
// and decides when a previous resolution can be reused unchanged.
package lockfile

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/grip/internal/core/ports"
	"go.trai.ch/zerr"
)

// Manager loads and saves grip.selections.json files.
type Manager struct {
	logger ports.Logger
}

// NewManager creates a selections file manager.
func NewManager(logger ports.Logger) *Manager {
	return &Manager{logger: logger}
}

// Load reads the selections file at path. A missing file is
// ErrSelectionsNotFound; anything unparsable, including an unknown
// fileVersion, is ErrMalformedLockfile and must be treated as fatal by
// callers rather than silently regenerated.
func (m *Manager) Load(path string) (*domain.Selections, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by trusted caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(domain.ErrSelectionsNotFound, "path", path)
		}
		return nil, zerr.Wrap(err, "failed to read selections file")
	}
	sel, err := domain.DecodeSelections(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return sel, nil
}

// Save writes the full selections atomically: the canonical encoding goes
// to a temporary sibling first and is renamed into place, so a crash
// mid-write never leaves a truncated file. Partial or merge writes do not
// exist; a save always replaces the whole file.
func (m *Manager) Save(sel *domain.Selections, path string) error {
	data, err := sel.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary selections file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return zerr.Wrap(err, "failed to write selections file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return zerr.Wrap(err, "failed to write selections file")
	}
	if err := os.Chmod(tmpPath, domain.FilePerm); err != nil {
		_ = os.Remove(tmpPath)
		return zerr.Wrap(err, "failed to write selections file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return zerr.Wrap(err, "failed to replace selections file")
	}
	if m.logger != nil {
		m.logger.Debug("selections saved", "path", path, "packages", sel.Len())
	}
	return nil
}

// IsReusable reports whether the selections still cover the root recipe:
// every reachable activated dependency has a pin and every pin satisfies
// its current constraints. The walk follows recipes as far as the offline
// source reaches; subtrees whose recipes are not locally available are
// trusted to their pins. When every recipe was available, pins for names
// the walk never reached are stale (a dependency removed from the
// manifest) and force re-resolution. Any violation forces a full
// resolution.
func (m *Manager) IsReusable(ctx context.Context, sel *domain.Selections, root *domain.Recipe, recipes ports.RecipeSource) bool {
	if sel == nil || sel.FileVersion != domain.SelectionsFileVersion {
		return false
	}

	visited := make(map[domain.PackageName]bool)
	complete := recipes != nil
	rootDisables := func(name domain.PackageName) bool {
		d, ok := root.Dependencies[name]
		return ok && d.Optional && !d.Default && !root.ActivatedBy(name)
	}
	queue := []*domain.Recipe{root}
	queue = append(queue, root.Subpackages...)

	for len(queue) > 0 {
		rec := queue[0]
		queue = queue[1:]

		for _, name := range rec.DependencyNames() {
			dep := rec.Dependencies[name]
			if dep.Optional && !dep.Default && !rec.ActivatedBy(name) {
				continue
			}
			if dep.Optional && dep.Default && rootDisables(name) {
				continue
			}
			spec := dep.EffectiveSpec()

			names := []domain.PackageName{name}
			if base := name.Base(); base != name {
				names = append(names, base)
			}
			for _, n := range names {
				pin, ok := sel.Get(n)
				if !ok {
					return false
				}
				if spec.Kind() == domain.SpecPath {
					if !pin.IsPath() || pin.Path != spec.Path() {
						return false
					}
				} else if pin.IsPath() || !spec.Matches(pin.Version) {
					return false
				}

				if visited[n] {
					continue
				}
				visited[n] = true

				if recipes == nil {
					continue
				}
				next, err := recipes.Recipe(ctx, n, pin)
				if err != nil {
					if errors.Is(err, domain.ErrRecipeNotFound) {
						complete = false
						continue
					}
					return false
				}
				if n.IsSub() {
					if sub := next.Subpackage(n); sub != nil {
						queue = append(queue, sub)
					}
					continue
				}
				queue = append(queue, next)
			}
		}
	}

	// Orphan pins: the whole closure was walkable, yet the selections
	// carry names it never reached.
	if complete {
		for _, name := range sel.Names() {
			if !visited[name] && name != root.Name {
				return false
			}
		}
	}
	return true
}
