// Package app implements the resolution orchestrator: it wires the
// manifest loader, resolver, selections manager and package cache into
// the build and upgrade entry points the CLI consumes.
package app

import (
	"context"
	"errors"
	"time"

	"go.trai.ch/grip/internal/adapters/cache"
	"go.trai.ch/grip/internal/adapters/lockfile"
	"go.trai.ch/grip/internal/adapters/manifest"
	"go.trai.ch/grip/internal/adapters/registry"
	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/grip/internal/core/ports"
	"go.trai.ch/grip/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// App sequences resolution: load lockfile if present, resolve with it as
// the pin set, persist when the result changed, then ensure every
// resolved package is on disk.
type App struct {
	manifests ports.ManifestLoader
	lockfiles *lockfile.Manager
	locks     ports.LockProvider
	logger    ports.Logger
	tracer    ports.Tracer

	lockTimeout time.Duration
}

// New creates the orchestrator.
func New(manifests ports.ManifestLoader, lockfiles *lockfile.Manager, locks ports.LockProvider, logger ports.Logger, tracer ports.Tracer) *App {
	return &App{
		manifests:   manifests,
		lockfiles:   lockfiles,
		locks:       locks,
		logger:      logger,
		tracer:      tracer,
		lockTimeout: cache.DefaultLockTimeout,
	}
}

// SetLockTimeout overrides the cache lock deadline for all operations.
func (a *App) SetLockTimeout(d time.Duration) {
	if d > 0 {
		a.lockTimeout = d
	}
}

// SetTracer replaces the tracer that spans resolution and package
// fetches, e.g. when settings select the otel or no-op backend over the
// default progress recorder.
func (a *App) SetTracer(t ports.Tracer) {
	if t != nil {
		a.tracer = t
	}
}

// ResolveForBuild resolves the project for a build or run: an existing
// valid lockfile is reused unchanged (and without registry queries); an
// invalidated or absent one triggers resolution with whatever pins still
// hold, and the updated selections are persisted. A malformed lockfile is
// fatal, never regenerated silently.
func (a *App) ResolveForBuild(ctx context.Context, rootDir, cacheRoot string, registries []ports.RegistryClient) (*domain.Selections, error) {
	root, err := a.manifests.Load(rootDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load project manifest")
	}

	lockPath := domain.SelectionsPath(rootDir)
	pinned, err := a.lockfiles.Load(lockPath)
	if err != nil {
		if !errors.Is(err, domain.ErrSelectionsNotFound) {
			return nil, err
		}
		pinned = nil
	}

	reg, source, _ := a.components(cacheRoot, registries)

	if pinned != nil && a.lockfiles.IsReusable(ctx, pinned, root, source) {
		a.logger.Debug("selections reused", "path", lockPath)
		return pinned, nil
	}

	res := resolver.New(reg,
		resolver.WithRecipeSource(source),
		resolver.WithLogger(a.logger),
		resolver.WithTracer(a.tracer),
	)
	sel, err := res.Resolve(ctx, root, pinned)
	if err != nil {
		return nil, err
	}

	if pinned == nil || !sel.Equal(pinned) {
		if err := a.lockfiles.Save(sel, lockPath); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

// ResolveForUpgrade re-resolves the project, ignoring the lockfile
// entirely or, when scoped to one package, ignoring only that package's
// pins so unrelated versions stay put. The result is always persisted.
func (a *App) ResolveForUpgrade(ctx context.Context, rootDir string, scope *domain.PackageName, cacheRoot string, registries []ports.RegistryClient) (*domain.Selections, error) {
	root, err := a.manifests.Load(rootDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load project manifest")
	}

	lockPath := domain.SelectionsPath(rootDir)
	var pinned *domain.Selections
	if scope != nil {
		loaded, err := a.lockfiles.Load(lockPath)
		if err != nil {
			if !errors.Is(err, domain.ErrSelectionsNotFound) {
				return nil, err
			}
		} else {
			pinned = loaded.Clone()
			for _, name := range pinned.Names() {
				if name.Base() == scope.Base() {
					pinned.Delete(name)
				}
			}
		}
	}

	reg, source, _ := a.components(cacheRoot, registries)
	res := resolver.New(reg,
		resolver.WithRecipeSource(source),
		resolver.WithLogger(a.logger),
		resolver.WithTracer(a.tracer),
	)
	sel, err := res.Resolve(ctx, root, pinned)
	if err != nil {
		return nil, err
	}

	if err := a.lockfiles.Save(sel, lockPath); err != nil {
		return nil, err
	}
	return sel, nil
}

// EnsureAll guarantees an on-disk copy of every selection and returns the
// absolute path per package.
func (a *App) EnsureAll(ctx context.Context, sel *domain.Selections, cacheRoot string, registries []ports.RegistryClient) (map[domain.PackageName]string, error) {
	_, _, store := a.components(cacheRoot, registries)
	return store.EnsureAll(ctx, sel)
}

// Describe returns the persisted selections of a project without
// resolving or fetching anything.
func (a *App) Describe(_ context.Context, rootDir string) (*domain.Selections, error) {
	if _, err := a.manifests.Load(rootDir); err != nil {
		return nil, zerr.Wrap(err, "failed to load project manifest")
	}
	return a.lockfiles.Load(domain.SelectionsPath(rootDir))
}

// Remove evicts one package version from the cache.
func (a *App) Remove(ctx context.Context, name domain.PackageName, version domain.Version, cacheRoot string) error {
	store := cache.New(cacheRoot, registry.NewOrdered(), a.locks,
		cache.WithLogger(a.logger),
		cache.WithTracer(a.tracer),
		cache.WithLockTimeout(a.lockTimeout),
	)
	return store.Remove(ctx, name, version)
}

// components builds the per-invocation pieces: the ordered registry
// view, the offline recipe source chain (path directories, then the
// cache) and the cache itself.
func (a *App) components(cacheRoot string, registries []ports.RegistryClient) (ports.RegistryClient, resolver.SourceChain, *cache.Cache) {
	reg := registry.NewOrdered(registries...)
	store := cache.New(cacheRoot, reg, a.locks,
		cache.WithLogger(a.logger),
		cache.WithTracer(a.tracer),
		cache.WithLockTimeout(a.lockTimeout),
	)
	source := resolver.SourceChain{manifest.NewPathSource(), store}
	return reg, source, store
}
