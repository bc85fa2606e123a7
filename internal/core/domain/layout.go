package domain

import "path/filepath"

const (
	// RecipeFileName is the name of a package's manifest file.
	RecipeFileName = "grip.json"

	// SelectionsFileName is the name of the lockfile accompanying a root
	// package's manifest.
	SelectionsFileName = "grip.selections.json"

	// SettingsFileName is the name of the tool settings file.
	SettingsFileName = "grip.settings.yaml"

	// GripDirName is the name of the tool's metadata directory.
	GripDirName = ".grip"

	// PackagesDirName is the name of the package cache directory inside
	// a cache root's metadata directory.
	PackagesDirName = "packages"

	// EntryManifestName is the integrity manifest written inside every
	// published cache entry directory.
	EntryManifestName = ".grip-entry.json"

	// LockSuffix is appended to a versioned entry path to form its lock
	// file, which lives alongside the entry so its lifecycle is
	// independent of the entry's existence.
	LockSuffix = ".lock"

	// StagingPrefix prefixes the private staging directories a fetch
	// extracts into before the atomic publish.
	StagingPrefix = ".staging-"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// LocalCacheRoot returns the project-local package cache root for the
// given project directory.
func LocalCacheRoot(projectDir string) string {
	return filepath.Join(projectDir, GripDirName, PackagesDirName)
}

// UserCacheRoot returns the user-wide package cache root under the given
// home directory. The home directory is an explicit parameter; the core
// never consults ambient process state.
func UserCacheRoot(home string) string {
	return filepath.Join(home, GripDirName, PackagesDirName)
}

// RecipePath returns the manifest path inside a package directory.
func RecipePath(dir string) string {
	return filepath.Join(dir, RecipeFileName)
}

// SelectionsPath returns the lockfile path for a root project directory.
func SelectionsPath(projectDir string) string {
	return filepath.Join(projectDir, SelectionsFileName)
}
