// Package cache implements the on-disk package cache: it maps a resolved
// (name, version) to an extracted directory, fetching missing packages
// from the registry with at-most-one physical fetch per entry even under
// concurrent processes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.trai.ch/grip/internal/adapters/manifest"
	"go.trai.ch/grip/internal/adapters/registry"
	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/grip/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DefaultLockTimeout bounds how long Ensure waits for another process to
// finish fetching the same entry.
const DefaultLockTimeout = 2 * time.Minute

// Cache is the package cache under one root directory. Entries live at
// <root>/<name>/<version>/ and are immutable once published; their lock
// files live alongside at <root>/<name>/<version>.lock so a lock's
// lifecycle is independent of the entry's existence.
type Cache struct {
	root        string
	registry    ports.RegistryClient
	locks       ports.LockProvider
	logger      ports.Logger
	tracer      ports.Tracer
	lockTimeout time.Duration
	fetchLimit  int
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer ports.Tracer) Option {
	return func(c *Cache) {
		c.tracer = tracer
	}
}

// WithLockTimeout overrides the lock acquisition deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithFetchLimit bounds EnsureAll's fetch parallelism.
func WithFetchLimit(limit int) Option {
	return func(c *Cache) {
		if limit > 0 {
			c.fetchLimit = limit
		}
	}
}

// New creates a cache rooted at the given absolute directory.
func New(root string, reg ports.RegistryClient, locks ports.LockProvider, opts ...Option) *Cache {
	c := &Cache{
		root:        root,
		registry:    reg,
		locks:       locks,
		lockTimeout: DefaultLockTimeout,
		fetchLimit:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// Ensure guarantees an on-disk copy of the selection and returns its
// absolute path. Path selections pass through unchanged with no locking;
// subpackage names share their base package's entry. A valid existing
// entry returns immediately without network access; otherwise the fetch
// runs under an exclusive cross-process lock scoped to this cache root,
// name and version, and publishes atomically, so a second caller either
// blocks and then observes the finished entry or sees nothing at all.
func (c *Cache) Ensure(ctx context.Context, name domain.PackageName, sel domain.SelectedVersion) (string, error) {
	if sel.IsPath() {
		if _, err := os.Stat(domain.RecipePath(sel.Path)); err != nil {
			wrapped := zerr.With(domain.ErrMissingPathDependency, "package", name.String())
			return "", zerr.With(wrapped, "path", sel.Path)
		}
		return sel.Path, nil
	}

	base := name.Base()
	entryDir := c.entryDir(base, sel.Version)

	// Fast path. Publish is atomic and entries are never mutated, so no
	// lock is needed to read.
	if c.validEntry(entryDir) {
		return entryDir, nil
	}

	lockPath := c.lockPath(base, sel.Version)
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()
	release, err := c.locks.Acquire(lockCtx, lockPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			wrapped := zerr.With(domain.ErrCacheLockTimeout, "lock_path", lockPath)
			return "", zerr.With(wrapped, "timeout", c.lockTimeout.String())
		}
		return "", zerr.Wrap(err, "failed to acquire cache lock")
	}
	defer release()

	// Re-check under the lock: the previous holder may have published
	// this entry while we waited.
	if c.validEntry(entryDir) {
		if c.logger != nil {
			c.logger.Debug("cache entry published by another process", "package", base.String(), "version", sel.Version.String())
		}
		return entryDir, nil
	}
	if _, err := os.Stat(entryDir); err == nil {
		// The directory exists but fails its integrity check. Evict it
		// under the lock and fetch fresh.
		if c.logger != nil {
			c.logger.Warn("evicting corrupt cache entry", "package", base.String(), "version", sel.Version.String())
		}
		if err := os.RemoveAll(entryDir); err != nil {
			return "", zerr.Wrap(err, domain.ErrCacheCorrupt.Error())
		}
	}

	if err := c.fetch(ctx, base, sel.Version, entryDir); err != nil {
		return "", err
	}
	return entryDir, nil
}

// fetch downloads, verifies, extracts and atomically publishes one entry.
// Any failure before the final rename removes the staging directory and
// leaves no visible entry.
func (c *Cache) fetch(ctx context.Context, name domain.PackageName, version domain.Version, entryDir string) (err error) {
	if c.tracer != nil {
		var span ports.Span
		ctx, span = c.tracer.Start(ctx, "fetch "+name.String()+"@"+version.String())
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()
		span.SetAttribute("package", name.String())
		span.SetAttribute("version", version.String())
	}

	staging := filepath.Join(c.root, name.String(), domain.StagingPrefix+uuid.NewString())
	if err := os.MkdirAll(staging, domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create staging directory")
	}
	defer func() {
		_ = os.RemoveAll(staging)
	}()

	body, err := c.registry.FetchArchive(ctx, name, version)
	if err != nil {
		return err
	}
	defer body.Close()

	// Hash the archive while spooling it so the entry manifest can
	// record an integrity digest.
	archivePath := filepath.Join(staging, "archive.tar.gz")
	archive, err := os.Create(archivePath) //nolint:gosec // staging path is cache-owned
	if err != nil {
		return zerr.Wrap(err, "failed to spool archive")
	}
	digest := xxhash.New()
	size, err := io.Copy(archive, io.TeeReader(body, digest))
	if cerr := archive.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return zerr.Wrap(zerr.With(err, "package", name.String()), domain.ErrNetworkFetch.Error())
	}

	extractDir := filepath.Join(staging, "pkg")
	archive, err = os.Open(archivePath) //nolint:gosec // staging path is cache-owned
	if err != nil {
		return zerr.Wrap(err, "failed to reopen spooled archive")
	}
	err = registry.UnpackArchive(archive, extractDir)
	_ = archive.Close()
	if err != nil {
		return zerr.With(zerr.With(err, "package", name.String()), "version", version.String())
	}

	entry := domain.CacheEntry{
		Name:          name,
		Version:       version,
		ArchiveDigest: hexDigest(digest.Sum64()),
		ArchiveSize:   size,
		FetchedAt:     time.Now().UTC(),
	}
	if err := writeEntryManifest(extractDir, entry); err != nil {
		return err
	}

	// Atomic publish. Everything before this point is invisible to other
	// callers; everything after it is immutable.
	if err := os.Rename(extractDir, entryDir); err != nil {
		return zerr.Wrap(err, "failed to publish cache entry")
	}
	if c.logger != nil {
		c.logger.Info("fetched package", "package", name.String(), "version", version.String(), "bytes", size)
	}
	return nil
}

// EnsureAll guarantees every selection is on disk and returns the path of
// each package. Fetches fan out with bounded parallelism; the per-entry
// locks keep concurrent invocations safe.
func (c *Cache) EnsureAll(ctx context.Context, sel *domain.Selections) (map[domain.PackageName]string, error) {
	names := sel.Names()
	if c.tracer != nil {
		planned := make([]string, len(names))
		for i, name := range names {
			planned[i] = name.String()
		}
		c.tracer.EmitPlan(ctx, planned)
	}

	paths := make(map[domain.PackageName]string, len(names))
	var mu sync.Mutex
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.fetchLimit)

	for _, name := range names {
		selected, _ := sel.Get(name)
		g.Go(func() error {
			path, err := c.Ensure(groupCtx, name, selected)
			if err != nil {
				return err
			}
			mu.Lock()
			paths[name] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// Remove evicts one entry. Eviction is always explicit, never a side
// effect, and takes the same per-entry lock as a fetch.
func (c *Cache) Remove(ctx context.Context, name domain.PackageName, version domain.Version) error {
	base := name.Base()
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()
	release, err := c.locks.Acquire(lockCtx, c.lockPath(base, version))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			wrapped := zerr.With(domain.ErrCacheLockTimeout, "lock_path", c.lockPath(base, version))
			return zerr.With(wrapped, "timeout", c.lockTimeout.String())
		}
		return zerr.Wrap(err, "failed to acquire cache lock")
	}
	defer release()

	if err := os.RemoveAll(c.entryDir(base, version)); err != nil {
		return zerr.Wrap(err, "failed to remove cache entry")
	}
	return nil
}

// Recipe implements ports.RecipeSource over published entries, giving the
// resolver an offline recipe view: a fully pinned graph with every
// package cached resolves without registry queries.
func (c *Cache) Recipe(_ context.Context, name domain.PackageName, sel domain.SelectedVersion) (*domain.Recipe, error) {
	if sel.IsPath() {
		return nil, zerr.With(domain.ErrRecipeNotFound, "package", name.String())
	}
	entryDir := c.entryDir(name.Base(), sel.Version)
	if !c.validEntry(entryDir) {
		return nil, zerr.With(domain.ErrRecipeNotFound, "package", name.String())
	}
	data, err := os.ReadFile(domain.RecipePath(entryDir)) //nolint:gosec // entry path is cache-owned
	if err != nil {
		return nil, zerr.With(domain.ErrRecipeNotFound, "package", name.String())
	}
	rec, err := manifest.Parse(data)
	if err != nil {
		return nil, zerr.With(err, "package", name.String())
	}
	return rec, nil
}

// hexDigest renders an xxhash sum the way the entry manifest stores it.
func hexDigest(sum uint64) string {
	return strconv.FormatUint(sum, 16)
}

// Entry reads the integrity manifest of a published entry.
func (c *Cache) Entry(name domain.PackageName, version domain.Version) (*domain.CacheEntry, error) {
	return readEntryManifest(c.entryDir(name.Base(), version))
}

// validEntry reports whether an entry directory is published and passes
// its integrity check: manifest readable, recipe present.
func (c *Cache) validEntry(dir string) bool {
	entry, err := readEntryManifest(dir)
	if err != nil || entry.ArchiveDigest == "" {
		return false
	}
	if _, err := os.Stat(domain.RecipePath(dir)); err != nil {
		return false
	}
	return true
}

func (c *Cache) entryDir(name domain.PackageName, version domain.Version) string {
	return filepath.Join(c.root, name.String(), version.String())
}

func (c *Cache) lockPath(name domain.PackageName, version domain.Version) string {
	return filepath.Join(c.root, name.String(), version.String()+domain.LockSuffix)
}

func writeEntryManifest(dir string, entry domain.CacheEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to encode cache entry manifest")
	}
	path := filepath.Join(dir, domain.EntryManifestName)
	if err := os.WriteFile(path, append(data, '\n'), domain.FilePerm); err != nil { //nolint:gosec // staging path is cache-owned
		return zerr.Wrap(err, "failed to write cache entry manifest")
	}
	return nil
}

func readEntryManifest(dir string) (*domain.CacheEntry, error) {
	data, err := os.ReadFile(filepath.Join(dir, domain.EntryManifestName)) //nolint:gosec // entry path is cache-owned
	if err != nil {
		return nil, err
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.Wrap(err, domain.ErrCacheCorrupt.Error())
	}
	return &entry, nil
}
