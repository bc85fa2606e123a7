package cache_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/grip/internal/adapters/cache"
	"go.trai.ch/grip/internal/adapters/filelock"
	"go.trai.ch/grip/internal/adapters/registry"
	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/grip/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// packageArchive builds a valid tar.gz for a one-file package.
func packageArchive(t *testing.T, name, version string) []byte {
	t.Helper()
	src := t.TempDir()
	recipe := []byte(`{"name":"` + name + `","version":"` + version + `"}`)
	require.NoError(t, os.WriteFile(filepath.Join(src, domain.RecipeFileName), recipe, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "source"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "source", "lib.d"), []byte("module lib;"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, registry.PackArchive(src, &buf))
	return buf.Bytes()
}

// archiveRegistry stubs FetchArchive to serve the given archive bytes
// exactly n times.
func archiveRegistry(t *testing.T, archive []byte, times int) *mocks.MockRegistryClient {
	t.Helper()
	reg := mocks.NewMockRegistryClient(gomock.NewController(t))
	reg.EXPECT().FetchArchive(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, domain.PackageName, domain.Version) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(archive)), nil
		},
	).Times(times)
	return reg
}

func TestCache_EnsureFetchesAndPublishes(t *testing.T) {
	root := t.TempDir()
	archive := packageArchive(t, "zlib", "1.3.1")
	c := cache.New(root, archiveRegistry(t, archive, 1), filelock.NewMemory())

	sel := domain.VersionSelection(domain.MustVersion("1.3.1"))
	dir, err := c.Ensure(context.Background(), domain.Name("zlib"), sel)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "zlib", "1.3.1"), dir)
	assert.FileExists(t, filepath.Join(dir, domain.RecipeFileName))
	assert.FileExists(t, filepath.Join(dir, "source", "lib.d"))

	entry, err := c.Entry(domain.Name("zlib"), domain.MustVersion("1.3.1"))
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ArchiveDigest)
	assert.Equal(t, int64(len(archive)), entry.ArchiveSize)

	// The second call is the lock-free fast path: the mock permits no
	// further FetchArchive calls.
	again, err := c.Ensure(context.Background(), domain.Name("zlib"), sel)
	require.NoError(t, err)
	assert.Equal(t, dir, again)
}

func TestCache_ConcurrentEnsureFetchesOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		root := t.TempDir()
		archive := packageArchive(t, "zlib", "1.3.1")
		c := cache.New(root, archiveRegistry(t, archive, 1), filelock.NewMemory())

		sel := domain.VersionSelection(domain.MustVersion("1.3.1"))
		const callers = 8
		var wg sync.WaitGroup
		errs := make([]error, callers)
		dirs := make([]string, callers)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				dirs[i], errs[i] = c.Ensure(context.Background(), domain.Name("zlib"), sel)
			}()
		}
		wg.Wait()

		want := filepath.Join(root, "zlib", "1.3.1")
		for i := range callers {
			require.NoError(t, errs[i])
			assert.Equal(t, want, dirs[i])
		}
	})
}

func TestCache_FailedFetchLeavesNothing(t *testing.T) {
	root := t.TempDir()
	reg := mocks.NewMockRegistryClient(gomock.NewController(t))
	reg.EXPECT().FetchArchive(gomock.Any(), gomock.Any(), gomock.Any()).Return(
		io.NopCloser(strings.NewReader("not a tar.gz")), nil,
	)
	c := cache.New(root, reg, filelock.NewMemory())

	_, err := c.Ensure(context.Background(), domain.Name("zlib"), domain.VersionSelection(domain.MustVersion("1.3.1")))
	require.Error(t, err)

	assert.NoDirExists(t, filepath.Join(root, "zlib", "1.3.1"))
	entries, err := os.ReadDir(filepath.Join(root, "zlib"))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), domain.StagingPrefix), "staging directory survived: %s", entry.Name())
	}
}

func TestCache_LockTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		root := t.TempDir()
		locks := filelock.NewMemory()
		reg := mocks.NewMockRegistryClient(gomock.NewController(t))
		c := cache.New(root, reg, locks, cache.WithLockTimeout(50*time.Millisecond))

		// Another holder keeps the entry lock for the whole test.
		lockPath := filepath.Join(root, "zlib", "1.3.1"+domain.LockSuffix)
		release, err := locks.Acquire(context.Background(), lockPath)
		require.NoError(t, err)
		defer release()

		_, err = c.Ensure(context.Background(), domain.Name("zlib"), domain.VersionSelection(domain.MustVersion("1.3.1")))
		assert.ErrorIs(t, err, domain.ErrCacheLockTimeout)
	})
}

func TestCache_PathSelectionPassesThrough(t *testing.T) {
	reg := mocks.NewMockRegistryClient(gomock.NewController(t))
	c := cache.New(t.TempDir(), reg, filelock.NewMemory())

	pkgDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, domain.RecipeFileName), []byte(`{"name":"local","version":"0.1.0"}`), 0o644))

	dir, err := c.Ensure(context.Background(), domain.Name("local"), domain.PathSelection(pkgDir))
	require.NoError(t, err)
	assert.Equal(t, pkgDir, dir)

	_, err = c.Ensure(context.Background(), domain.Name("gone"), domain.PathSelection(filepath.Join(pkgDir, "missing")))
	assert.ErrorIs(t, err, domain.ErrMissingPathDependency)
}

func TestCache_SubpackageSharesBaseEntry(t *testing.T) {
	root := t.TempDir()
	archive := packageArchive(t, "vibe", "1.2.0")
	reg := mocks.NewMockRegistryClient(gomock.NewController(t))
	reg.EXPECT().FetchArchive(gomock.Any(), domain.Name("vibe"), domain.MustVersion("1.2.0")).Return(
		io.NopCloser(bytes.NewReader(archive)), nil,
	)
	c := cache.New(root, reg, filelock.NewMemory())

	dir, err := c.Ensure(context.Background(), domain.Name("vibe:http"), domain.VersionSelection(domain.MustVersion("1.2.0")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "vibe", "1.2.0"), dir)
}

func TestCache_CorruptEntryEvicted(t *testing.T) {
	root := t.TempDir()
	entryDir := filepath.Join(root, "zlib", "1.3.1")
	require.NoError(t, os.MkdirAll(entryDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(entryDir, domain.EntryManifestName), []byte("{broken"), 0o644))

	archive := packageArchive(t, "zlib", "1.3.1")
	c := cache.New(root, archiveRegistry(t, archive, 1), filelock.NewMemory())

	dir, err := c.Ensure(context.Background(), domain.Name("zlib"), domain.VersionSelection(domain.MustVersion("1.3.1")))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, domain.RecipeFileName))

	entry, err := c.Entry(domain.Name("zlib"), domain.MustVersion("1.3.1"))
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ArchiveDigest)
}

func TestCache_Remove(t *testing.T) {
	root := t.TempDir()
	archive := packageArchive(t, "zlib", "1.3.1")
	c := cache.New(root, archiveRegistry(t, archive, 1), filelock.NewMemory())

	dir, err := c.Ensure(context.Background(), domain.Name("zlib"), domain.VersionSelection(domain.MustVersion("1.3.1")))
	require.NoError(t, err)

	require.NoError(t, c.Remove(context.Background(), domain.Name("zlib"), domain.MustVersion("1.3.1")))
	assert.NoDirExists(t, dir)
}

func TestCache_RecipeSource(t *testing.T) {
	root := t.TempDir()
	archive := packageArchive(t, "zlib", "1.3.1")
	c := cache.New(root, archiveRegistry(t, archive, 1), filelock.NewMemory())

	sel := domain.VersionSelection(domain.MustVersion("1.3.1"))
	_, err := c.Ensure(context.Background(), domain.Name("zlib"), sel)
	require.NoError(t, err)

	rec, err := c.Recipe(context.Background(), domain.Name("zlib"), sel)
	require.NoError(t, err)
	assert.Equal(t, "zlib", rec.Name.String())

	_, err = c.Recipe(context.Background(), domain.Name("zlib"), domain.VersionSelection(domain.MustVersion("9.9.9")))
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	_, err = c.Recipe(context.Background(), domain.Name("local"), domain.PathSelection("/srv/deps/local"))
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestCache_EnsureAll(t *testing.T) {
	root := t.TempDir()
	zlib := packageArchive(t, "zlib", "1.3.1")
	web := packageArchive(t, "web", "2.0.0")

	reg := mocks.NewMockRegistryClient(gomock.NewController(t))
	reg.EXPECT().FetchArchive(gomock.Any(), domain.Name("zlib"), gomock.Any()).Return(
		io.NopCloser(bytes.NewReader(zlib)), nil,
	)
	reg.EXPECT().FetchArchive(gomock.Any(), domain.Name("web"), gomock.Any()).Return(
		io.NopCloser(bytes.NewReader(web)), nil,
	)
	c := cache.New(root, reg, filelock.NewMemory())

	sel := domain.NewSelections()
	sel.Set(domain.Name("zlib"), domain.VersionSelection(domain.MustVersion("1.3.1")))
	sel.Set(domain.Name("web"), domain.VersionSelection(domain.MustVersion("2.0.0")))

	paths, err := c.EnsureAll(context.Background(), sel)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(root, "zlib", "1.3.1"), paths[domain.Name("zlib")])
	assert.Equal(t, filepath.Join(root, "web", "2.0.0"), paths[domain.Name("web")])
}

// entryManifestShape pins the manifest encoding other tools read.
func TestCache_EntryManifestShape(t *testing.T) {
	root := t.TempDir()
	archive := packageArchive(t, "zlib", "1.3.1")
	c := cache.New(root, archiveRegistry(t, archive, 1), filelock.NewMemory())

	dir, err := c.Ensure(context.Background(), domain.Name("zlib"), domain.VersionSelection(domain.MustVersion("1.3.1")))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, domain.EntryManifestName))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "zlib", raw["name"])
	assert.Equal(t, "1.3.1", raw["version"])
	assert.Contains(t, raw, "archiveDigest")
	assert.Contains(t, raw, "fetchedAt")
}
