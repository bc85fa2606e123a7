package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/grip/internal/adapters/filelock"
	"go.trai.ch/grip/internal/adapters/lockfile"
	"go.trai.ch/grip/internal/adapters/logger"
	"go.trai.ch/grip/internal/adapters/manifest"
	"go.trai.ch/grip/internal/adapters/telemetry"
	"go.trai.ch/grip/internal/app"
)

func testProvider() ComponentProvider {
	return func(_ context.Context) (*app.Components, func(), error) {
		lg := logger.NewWithOptions(io.Discard, charmlog.ErrorLevel)
		a := app.New(manifest.NewLoader(), lockfile.NewManager(lg), filelock.NewMemory(), lg, telemetry.NewNoOpTracer())
		return &app.Components{App: a, Logger: lg}, func() {}, nil
	}
}

func TestRun_Success(t *testing.T) {
	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, testProvider())
	assert.Equal(t, 0, exitCode)
}

func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

func TestRun_ExecutionError(t *testing.T) {
	stderr := new(bytes.Buffer)
	// An empty project directory has no manifest, so build fails.
	exitCode := run(context.Background(), []string{"build", "--offline", "--root", t.TempDir(), "--cache", t.TempDir()}, stderr, testProvider())

	assert.Equal(t, 1, exitCode)
	assert.NotEmpty(t, stderr.String())
}
