package domain

import "go.trai.ch/zerr"

var (
	// ErrUnresolvableConstraint is returned when no version of a package
	// satisfies the union of constraints placed on it. The error carries
	// the package name and the list of constraint sources as metadata.
	ErrUnresolvableConstraint = zerr.New("no version satisfies the combined constraints")

	// ErrCyclicDependency is returned when graph construction detects a
	// dependency cycle. Cycles are fatal and never broken automatically.
	ErrCyclicDependency = zerr.New("cyclic dependency detected")

	// ErrMalformedLockfile is returned when a selections file cannot be
	// parsed or declares an unknown file version. Callers must treat this
	// as fatal rather than silently regenerating the file.
	ErrMalformedLockfile = zerr.New("malformed selections file")

	// ErrNetworkFetch is returned when a registry stays unreachable after
	// the bounded retries, or when a fetched archive is corrupt.
	ErrNetworkFetch = zerr.New("registry fetch failed")

	// ErrCacheLockTimeout is returned when another process held a cache
	// entry lock past the configured deadline.
	ErrCacheLockTimeout = zerr.New("timed out waiting for cache lock")

	// ErrMissingPathDependency is returned when a declared path dependency
	// does not exist on disk or carries no recipe.
	ErrMissingPathDependency = zerr.New("path dependency missing or has no recipe")

	// ErrPackageNotFound is returned when no consulted registry knows the
	// requested package name.
	ErrPackageNotFound = zerr.New("package not found in any registry")

	// ErrVersionNotFound is returned when a registry knows the package but
	// not the requested version.
	ErrVersionNotFound = zerr.New("package version not found")

	// ErrRecipeNotFound is returned by offline recipe sources when the
	// recipe for a concrete version is not locally available.
	ErrRecipeNotFound = zerr.New("recipe not available")

	// ErrInvalidVersion is returned when a version string cannot be parsed.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrInvalidVersionSpec is returned when a version specification
	// cannot be parsed.
	ErrInvalidVersionSpec = zerr.New("invalid version specification")

	// ErrInvalidRecipe is returned when a recipe fails structural
	// validation (missing name, bad subpackage nesting, unknown
	// configuration references).
	ErrInvalidRecipe = zerr.New("invalid recipe")

	// ErrInvalidArchive is returned when a package archive fails
	// extraction or does not contain a recipe at its root.
	ErrInvalidArchive = zerr.New("invalid package archive")

	// ErrSelectionsNotFound is returned when a selections file is expected
	// but absent.
	ErrSelectionsNotFound = zerr.New("selections file not found")

	// ErrCacheCorrupt is returned when a published cache entry fails its
	// integrity check.
	ErrCacheCorrupt = zerr.New("cache entry failed integrity check")

	// ErrResolutionDiverged is returned when constraint solving does not
	// reach a fixed point within the pass budget.
	ErrResolutionDiverged = zerr.New("resolution did not converge")

	// ErrSettingsParse is returned when the tool settings file cannot be
	// parsed.
	ErrSettingsParse = zerr.New("failed to parse settings file")
)
