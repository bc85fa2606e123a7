package registry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/grip/internal/adapters/manifest"
	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/zerr"
)

// DirRegistry implements ports.RegistryClient over a local directory tree
// laid out as <dir>/<name>/<version>/grip.json. It backs tests and fully
// offline resolution; archives are served from a prebuilt
// <dir>/<name>/<name>-<version>.tar.gz when present and packed from the
// version directory on the fly otherwise.
type DirRegistry struct {
	dir    string
	loader *manifest.Loader
}

// NewDir creates a directory-backed registry rooted at dir.
func NewDir(dir string) *DirRegistry {
	return &DirRegistry{dir: dir, loader: manifest.NewLoader()}
}

// ListVersions returns every version directory of the package.
func (r *DirRegistry) ListVersions(_ context.Context, name domain.PackageName) ([]domain.Version, error) {
	entries, err := os.ReadDir(filepath.Join(r.dir, name.String()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(domain.ErrPackageNotFound, "package", name.String())
		}
		return nil, zerr.Wrap(err, "failed to read registry directory")
	}
	var versions []domain.Version
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := domain.ParseVersion(entry.Name())
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return nil, zerr.With(domain.ErrPackageNotFound, "package", name.String())
	}
	return domain.SortVersionsDesc(versions), nil
}

// FetchRecipe reads the recipe of one version directory.
func (r *DirRegistry) FetchRecipe(_ context.Context, name domain.PackageName, version domain.Version) (*domain.Recipe, error) {
	dir := r.versionDir(name, version)
	if _, err := os.Stat(dir); err != nil {
		return nil, r.missingError(name, version)
	}
	return r.loader.Load(dir)
}

// FetchArchive returns the package archive, packing the version directory
// when no prebuilt archive exists.
func (r *DirRegistry) FetchArchive(_ context.Context, name domain.PackageName, version domain.Version) (io.ReadCloser, error) {
	prebuilt := filepath.Join(r.dir, name.String(), name.String()+"-"+version.String()+".tar.gz")
	if f, err := os.Open(prebuilt); err == nil { //nolint:gosec // registry directory is trusted
		return f, nil
	}

	dir := r.versionDir(name, version)
	if _, err := os.Stat(dir); err != nil {
		return nil, r.missingError(name, version)
	}
	var buf bytes.Buffer
	if err := PackArchive(dir, &buf); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

// missingError distinguishes an unknown package from a known package
// lacking the requested version. An ordered chain defers to the next
// registry only in the first case.
func (r *DirRegistry) missingError(name domain.PackageName, version domain.Version) error {
	if _, err := os.Stat(filepath.Join(r.dir, name.String())); err != nil {
		return zerr.With(domain.ErrPackageNotFound, "package", name.String())
	}
	err := zerr.With(domain.ErrVersionNotFound, "package", name.String())
	return zerr.With(err, "version", version.String())
}

func (r *DirRegistry) versionDir(name domain.PackageName, version domain.Version) string {
	return filepath.Join(r.dir, name.String(), version.String())
}
