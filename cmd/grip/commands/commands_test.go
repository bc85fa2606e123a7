package commands_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/grip/cmd/grip/commands"
	"go.trai.ch/grip/internal/adapters/filelock"
	"go.trai.ch/grip/internal/adapters/lockfile"
	"go.trai.ch/grip/internal/adapters/logger"
	"go.trai.ch/grip/internal/adapters/manifest"
	"go.trai.ch/grip/internal/adapters/telemetry"
	"go.trai.ch/grip/internal/app"
	"go.trai.ch/grip/internal/build"
	"go.trai.ch/grip/internal/core/domain"
)

func newCLI(t *testing.T) (*commands.CLI, *bytes.Buffer) {
	t.Helper()
	lg := logger.NewWithOptions(io.Discard, charmlog.ErrorLevel)
	a := app.New(manifest.NewLoader(), lockfile.NewManager(lg), filelock.NewMemory(), lg, telemetry.NewNoOpTracer())

	cli := commands.New(a, lg)
	stdout := new(bytes.Buffer)
	cli.SetOutput(stdout, io.Discard)
	return cli, stdout
}

// writeVendoredProject lays out a project whose only dependency is a
// vendored path dependency, so every command can run fully offline.
func writeVendoredProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	vendored := filepath.Join(dir, "vendor", "local")
	require.NoError(t, os.MkdirAll(vendored, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(vendored, domain.RecipeFileName),
		[]byte(`{"name": "local", "version": "0.1.0"}`), 0o644))

	doc := `{
  "name": "app",
  "version": "0.1.0",
  "dependencies": {
    "local": {"version": "*", "path": "vendor/local"}
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.RecipeFileName), []byte(doc), 0o644))
	return dir
}

func TestBuildCommand_OfflinePathProject(t *testing.T) {
	dir := writeVendoredProject(t)
	cli, _ := newCLI(t)
	cli.SetArgs([]string{"build", "--offline", "--root", dir, "--cache", t.TempDir()})

	require.NoError(t, cli.Execute(context.Background()))

	sel, err := lockfile.NewManager(nil).Load(domain.SelectionsPath(dir))
	require.NoError(t, err)
	pin, ok := sel.Get(domain.Name("local"))
	require.True(t, ok)
	assert.True(t, pin.IsPath())
}

func TestDescribeCommand(t *testing.T) {
	dir := writeVendoredProject(t)
	cacheRoot := t.TempDir()

	cli, _ := newCLI(t)
	cli.SetArgs([]string{"build", "--offline", "--root", dir, "--cache", cacheRoot})
	require.NoError(t, cli.Execute(context.Background()))

	cli, stdout := newCLI(t)
	cli.SetArgs([]string{"describe", "--root", dir, "--cache", cacheRoot, "--offline"})
	require.NoError(t, cli.Execute(context.Background()))

	assert.Contains(t, stdout.String(), "local path:")
}

func TestDescribeCommand_NoLockfile(t *testing.T) {
	dir := writeVendoredProject(t)
	cli, _ := newCLI(t)
	cli.SetArgs([]string{"describe", "--offline", "--root", dir, "--cache", t.TempDir()})

	err := cli.Execute(context.Background())
	assert.ErrorIs(t, err, domain.ErrSelectionsNotFound)
}

func TestUpgradeCommand_Offline(t *testing.T) {
	dir := writeVendoredProject(t)
	cli, _ := newCLI(t)
	cli.SetArgs([]string{"upgrade", "--offline", "--root", dir, "--cache", t.TempDir()})

	require.NoError(t, cli.Execute(context.Background()))
	assert.FileExists(t, domain.SelectionsPath(dir))
}

func TestBuildCommand_TelemetryFlag(t *testing.T) {
	for _, mode := range []string{"progress", "otel", "none"} {
		t.Run(mode, func(t *testing.T) {
			dir := writeVendoredProject(t)
			cli, _ := newCLI(t)
			cli.SetArgs([]string{"build", "--offline", "--root", dir, "--cache", t.TempDir(), "--telemetry", mode})

			require.NoError(t, cli.Execute(context.Background()))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cli, stdout := newCLI(t)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, stdout.String(), build.Version)
}

func TestCleanCommand_BadVersion(t *testing.T) {
	cli, _ := newCLI(t)
	cli.SetArgs([]string{"clean", "zlib", "not-a-version", "--root", t.TempDir(), "--cache", t.TempDir()})

	assert.Error(t, cli.Execute(context.Background()))
}

func TestBuildCommand_MissingManifest(t *testing.T) {
	cli, _ := newCLI(t)
	cli.SetArgs([]string{"build", "--offline", "--root", t.TempDir(), "--cache", t.TempDir()})

	err := cli.Execute(context.Background())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}
