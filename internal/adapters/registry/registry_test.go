package registry_test

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/grip/internal/adapters/registry"
	"go.trai.ch/grip/internal/core/domain"
)

// writePackage lays out <dir>/<name>/<version>/grip.json for DirRegistry.
func writePackage(t *testing.T, dir, name, version string, deps map[string]string) {
	t.Helper()
	pkgDir := filepath.Join(dir, name, version)
	require.NoError(t, os.MkdirAll(pkgDir, 0o750))

	doc := map[string]any{"name": name, "version": version}
	if len(deps) > 0 {
		doc["dependencies"] = deps
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, domain.RecipeFileName), data, 0o644))
}

func TestDirRegistry_ListVersions(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, "zlib", "1.0.0", nil)
	writePackage(t, dir, "zlib", "1.3.1", nil)

	reg := registry.NewDir(dir)
	versions, err := reg.ListVersions(context.Background(), domain.Name("zlib"))
	require.NoError(t, err)

	got := make([]string, len(versions))
	for i, v := range versions {
		got[i] = v.String()
	}
	assert.Equal(t, []string{"1.3.1", "1.0.0"}, got)
}

func TestDirRegistry_UnknownPackage(t *testing.T) {
	reg := registry.NewDir(t.TempDir())
	_, err := reg.ListVersions(context.Background(), domain.Name("ghost"))
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func TestDirRegistry_FetchRecipe(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, "web", "1.0.0", map[string]string{"zlib": ">=1.0.0"})

	reg := registry.NewDir(dir)
	rec, err := reg.FetchRecipe(context.Background(), domain.Name("web"), domain.MustVersion("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "web", rec.Name.String())
	require.Contains(t, rec.Dependencies, domain.Name("zlib"))

	_, err = reg.FetchRecipe(context.Background(), domain.Name("web"), domain.MustVersion("9.9.9"))
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestDirRegistry_FetchArchivePacksOnTheFly(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, "web", "1.0.0", nil)
	srcDir := filepath.Join(dir, "web", "1.0.0")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "source"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "source", "app.d"), []byte("void main() {}\n"), 0o644))

	reg := registry.NewDir(dir)
	body, err := reg.FetchArchive(context.Background(), domain.Name("web"), domain.MustVersion("1.0.0"))
	require.NoError(t, err)
	defer body.Close()

	target := t.TempDir()
	require.NoError(t, registry.UnpackArchive(body, target))
	assert.FileExists(t, filepath.Join(target, domain.RecipeFileName))

	content, err := os.ReadFile(filepath.Join(target, "source", "app.d"))
	require.NoError(t, err)
	assert.Equal(t, "void main() {}\n", string(content))
}

func TestDirRegistry_FetchArchivePrefersPrebuilt(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, "web", "1.0.0", nil)

	var buf bytes.Buffer
	require.NoError(t, registry.PackArchive(filepath.Join(dir, "web", "1.0.0"), &buf))
	prebuilt := filepath.Join(dir, "web", "web-1.0.0.tar.gz")
	require.NoError(t, os.WriteFile(prebuilt, buf.Bytes(), 0o644))

	reg := registry.NewDir(dir)
	body, err := reg.FetchArchive(context.Background(), domain.Name("web"), domain.MustVersion("1.0.0"))
	require.NoError(t, err)
	defer body.Close()

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), got)
}

func TestPackArchive_RoundTrip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, domain.RecipeFileName), []byte(`{"name":"web","version":"1.0.0"}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "source"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "source", "app.d"), []byte("module app;"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, registry.PackArchive(src, &buf))

	dst := t.TempDir()
	require.NoError(t, registry.UnpackArchive(&buf, dst))

	content, err := os.ReadFile(filepath.Join(dst, "source", "app.d"))
	require.NoError(t, err)
	assert.Equal(t, "module app;", string(content))
}

// craftArchive builds a tar.gz from explicit entries for the rejection
// tests.
func craftArchive(t *testing.T, entries map[string]string, symlink string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	if symlink != "" {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     symlink,
			Typeflag: tar.TypeSymlink,
			Linkname: "/etc/passwd",
			Mode:     0o777,
		}))
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func TestUnpackArchive_Rejections(t *testing.T) {
	recipe := `{"name":"web","version":"1.0.0"}`

	t.Run("escaping entry", func(t *testing.T) {
		data := craftArchive(t, map[string]string{
			domain.RecipeFileName: recipe,
			"../evil":             "pwned",
		}, "")
		err := registry.UnpackArchive(bytes.NewReader(data), t.TempDir())
		assert.ErrorIs(t, err, domain.ErrInvalidArchive)
	})

	t.Run("symlink entry", func(t *testing.T) {
		data := craftArchive(t, map[string]string{domain.RecipeFileName: recipe}, "link")
		err := registry.UnpackArchive(bytes.NewReader(data), t.TempDir())
		assert.ErrorIs(t, err, domain.ErrInvalidArchive)
	})

	t.Run("missing recipe", func(t *testing.T) {
		data := craftArchive(t, map[string]string{"readme.md": "hello"}, "")
		err := registry.UnpackArchive(bytes.NewReader(data), t.TempDir())
		assert.ErrorIs(t, err, domain.ErrInvalidArchive)
	})

	t.Run("not gzip", func(t *testing.T) {
		err := registry.UnpackArchive(bytes.NewReader([]byte("plain text")), t.TempDir())
		assert.Error(t, err)
	})
}

func infoDocument(versions ...string) []byte {
	docs := make(map[string]json.RawMessage, len(versions))
	for _, v := range versions {
		docs[v] = json.RawMessage(fmt.Sprintf(`{"name":"zlib","version":%q}`, v))
	}
	data, _ := json.Marshal(map[string]any{"versions": docs})
	return data
}

func TestHTTPRegistry_ListVersions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/packages/zlib/info", r.URL.Path)
		_, _ = w.Write(infoDocument("1.0.0", "1.3.1"))
	}))
	defer srv.Close()

	reg := registry.NewHTTP(srv.URL, nil)
	versions, err := reg.ListVersions(context.Background(), domain.Name("zlib"))
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.3.1", versions[0].String())
}

func TestHTTPRegistry_FetchRecipe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(infoDocument("1.0.0"))
	}))
	defer srv.Close()

	reg := registry.NewHTTP(srv.URL, nil)
	rec, err := reg.FetchRecipe(context.Background(), domain.Name("zlib"), domain.MustVersion("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "zlib", rec.Name.String())

	_, err = reg.FetchRecipe(context.Background(), domain.Name("zlib"), domain.MustVersion("2.0.0"))
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestHTTPRegistry_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(infoDocument("1.0.0"))
	}))
	defer srv.Close()

	reg := registry.NewHTTP(srv.URL, nil)
	versions, err := reg.ListVersions(context.Background(), domain.Name("zlib"))
	require.NoError(t, err)
	assert.Len(t, versions, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPRegistry_NotFoundIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reg := registry.NewHTTP(srv.URL, nil)
	_, err := reg.ListVersions(context.Background(), domain.Name("ghost"))
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)
	// A 404 never retries.
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPRegistry_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := registry.NewHTTP(srv.URL, nil)
	_, err := reg.ListVersions(context.Background(), domain.Name("zlib"))
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestHTTPRegistry_FetchArchive(t *testing.T) {
	archive := []byte("tar.gz bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/packages/zlib/1.0.0.tar.gz" {
			_, _ = w.Write(archive)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reg := registry.NewHTTP(srv.URL, nil)
	body, err := reg.FetchArchive(context.Background(), domain.Name("zlib"), domain.MustVersion("1.0.0"))
	require.NoError(t, err)
	defer body.Close()
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, archive, got)

	_, err = reg.FetchArchive(context.Background(), domain.Name("zlib"), domain.MustVersion("2.0.0"))
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestOrdered_FirstKnownNameWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writePackage(t, first, "zlib", "1.0.0", nil)
	writePackage(t, second, "zlib", "2.0.0", nil)
	writePackage(t, second, "web", "1.0.0", nil)

	reg := registry.NewOrdered(registry.NewDir(first), registry.NewDir(second))

	// zlib exists in both; the first registry answers.
	versions, err := reg.ListVersions(context.Background(), domain.Name("zlib"))
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "1.0.0", versions[0].String())

	// web only exists in the second; the chain falls through.
	versions, err = reg.ListVersions(context.Background(), domain.Name("web"))
	require.NoError(t, err)
	require.Len(t, versions, 1)
}

func TestOrdered_ClaimedNameNeverMixesRegistries(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writePackage(t, first, "zlib", "1.0.0", nil)
	writePackage(t, second, "zlib", "2.0.0", nil)
	writePackage(t, second, "web", "1.0.0", nil)

	reg := registry.NewOrdered(registry.NewDir(first), registry.NewDir(second))

	// The first registry carries zlib, so it answers for every zlib
	// version; 2.0.0 existing only in the second registry is not served.
	_, err := reg.FetchRecipe(context.Background(), domain.Name("zlib"), domain.MustVersion("2.0.0"))
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)

	_, err = reg.FetchArchive(context.Background(), domain.Name("zlib"), domain.MustVersion("2.0.0"))
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)

	// A name the first registry does not carry still falls through.
	rec, err := reg.FetchRecipe(context.Background(), domain.Name("web"), domain.MustVersion("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "web", rec.Name.String())

	body, err := reg.FetchArchive(context.Background(), domain.Name("web"), domain.MustVersion("1.0.0"))
	require.NoError(t, err)
	require.NoError(t, body.Close())
}

func TestOrdered_EmptyChain(t *testing.T) {
	reg := registry.NewOrdered()
	_, err := reg.ListVersions(context.Background(), domain.Name("zlib"))
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)

	_, err = reg.FetchRecipe(context.Background(), domain.Name("zlib"), domain.MustVersion("1.0.0"))
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)
}
