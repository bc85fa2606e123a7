package manifest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/grip/internal/adapters/manifest"
	"go.trai.ch/grip/internal/core/domain"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.RecipeFileName), []byte(content), 0o644))
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
  "name": "app",
  "version": "0.1.0",
  "dependencies": {
    "zlib": ">=1.0.0 <2.0.0",
    "tls": {"version": "*", "optional": true, "default": true},
    "local": {"version": "*", "path": "deps/local"}
  }
}`)

	rec, err := manifest.NewLoader().Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "app", rec.Name.String())
	assert.Equal(t, "0.1.0", rec.Version.String())

	zlib := rec.Dependencies[domain.Name("zlib")]
	assert.Equal(t, ">=1.0.0 <2.0.0", zlib.Spec.String())
	assert.False(t, zlib.Optional)

	tls := rec.Dependencies[domain.Name("tls")]
	assert.True(t, tls.Optional)
	assert.True(t, tls.Default)

	// Relative path dependencies are anchored at the manifest directory.
	local := rec.Dependencies[domain.Name("local")]
	assert.Equal(t, filepath.Join(dir, "deps", "local"), local.Path)
}

func TestLoader_LoadSubpackages(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
  "name": "vibe",
  "version": "1.2.0",
  "dependencies": {"openssl": {"version": ">=3.0.0", "optional": true}},
  "subPackages": [
    {"name": "http", "dependencies": {"openssl": ">=3.0.0"}}
  ],
  "configurations": [
    {"name": "secure", "dependencies": ["openssl"]}
  ]
}`)

	rec, err := manifest.NewLoader().Load(dir)
	require.NoError(t, err)
	require.Len(t, rec.Subpackages, 1)

	sub := rec.Subpackages[0]
	assert.Equal(t, "vibe:http", sub.Name.String())
	// Subpackages always share the parent's version.
	assert.Equal(t, "1.2.0", sub.Version.String())

	assert.True(t, rec.ActivatedBy(domain.Name("openssl")))
}

func TestLoader_Missing(t *testing.T) {
	_, err := manifest.NewLoader().Load(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestLoader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "broken json", content: `{"name": "app"`},
		{name: "missing name", content: `{"version": "0.1.0"}`},
		{name: "bad version", content: `{"name": "app", "version": "not-a-version"}`},
		{name: "bad dependency spec", content: `{"name": "app", "version": "0.1.0", "dependencies": {"zlib": ">>nope"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			_, err := manifest.NewLoader().Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
  "name": "app",
  "version": "0.1.0",
  "dependencies": {"zlib": ">=1.0.0"}
}`)
	rec, err := manifest.NewLoader().Load(dir)
	require.NoError(t, err)

	data, err := manifest.Encode(rec)
	require.NoError(t, err)

	again, err := manifest.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, again.Name)
	assert.Equal(t, rec.Version.String(), again.Version.String())
	assert.Equal(t, rec.Dependencies[domain.Name("zlib")].Spec.String(), again.Dependencies[domain.Name("zlib")].Spec.String())
}

func TestPathSource_Recipe(t *testing.T) {
	ctx := context.Background()
	src := manifest.NewPathSource()

	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "local", "version": "0.1.0"}`)

	rec, err := src.Recipe(ctx, domain.Name("local"), domain.PathSelection(dir))
	require.NoError(t, err)
	assert.Equal(t, "local", rec.Name.String())

	t.Run("non-path selections defer", func(t *testing.T) {
		_, err := src.Recipe(ctx, domain.Name("local"), domain.VersionSelection(domain.MustVersion("0.1.0")))
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
	})

	t.Run("missing recipe is fatal", func(t *testing.T) {
		_, err := src.Recipe(ctx, domain.Name("local"), domain.PathSelection(t.TempDir()))
		assert.ErrorIs(t, err, domain.ErrMissingPathDependency)
	})

	t.Run("name mismatch is fatal", func(t *testing.T) {
		other := t.TempDir()
		writeManifest(t, other, `{"name": "stranger", "version": "0.1.0"}`)
		_, err := src.Recipe(ctx, domain.Name("local"), domain.PathSelection(other))
		assert.ErrorIs(t, err, domain.ErrMissingPathDependency)
	})
}
