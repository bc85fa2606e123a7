// Package commands implements the CLI commands for the grip package
// manager.
package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/grip/internal/adapters/registry"
	"go.trai.ch/grip/internal/adapters/settings"
	"go.trai.ch/grip/internal/adapters/telemetry"
	"go.trai.ch/grip/internal/app"
	"go.trai.ch/grip/internal/build"
	"go.trai.ch/grip/internal/core/ports"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for grip.
type CLI struct {
	app     *app.App
	logger  ports.Logger
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App, logger ports.Logger) *CLI {
	rootCmd := &cobra.Command{
		Use:           "grip",
		Short:         "A package manager with reproducible dependency resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.PersistentFlags().String("root", "", "Project directory (defaults to the working directory)")
	rootCmd.PersistentFlags().String("cache", "", "Cache location: local, user, or an explicit path")
	rootCmd.PersistentFlags().StringArray("registry", nil, "Registry URL, in priority order (repeatable)")
	rootCmd.PersistentFlags().Bool("offline", false, "Skip all registries; resolve from pins and paths only")
	rootCmd.PersistentFlags().Duration("lock-timeout", 0, "How long to wait for another process's cache lock")
	rootCmd.PersistentFlags().String("telemetry", "", "Tracing backend: progress, otel, or none")

	c := &CLI{
		app:     a,
		logger:  logger,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newUpgradeCmd())
	rootCmd.AddCommand(c.newFetchCmd())
	rootCmd.AddCommand(c.newDescribeCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects the command's stdout and stderr streams.
func (c *CLI) SetOutput(stdout, stderr io.Writer) {
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)
}

// invocation holds the per-command environment derived from flags and
// settings. The ambient working directory and home directory are read
// here, at the CLI boundary, and handed to the core as absolute paths.
type invocation struct {
	rootDir    string
	cacheRoot  string
	registries []ports.RegistryClient
}

func (c *CLI) resolveInvocation(cmd *cobra.Command) (*invocation, error) {
	rootDir, _ := cmd.Flags().GetString("root")
	if rootDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, zerr.Wrap(err, "failed to determine working directory")
		}
		rootDir = cwd
	}
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve project directory")
	}

	cfg, err := settings.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if cacheFlag, _ := cmd.Flags().GetString("cache"); cacheFlag != "" {
		cfg.Cache = cacheFlag
	}
	if urls, _ := cmd.Flags().GetStringArray("registry"); len(urls) > 0 {
		cfg.Registries = urls
	}
	if timeout, _ := cmd.Flags().GetDuration("lock-timeout"); timeout > 0 {
		cfg.LockTimeout = settings.Duration(timeout)
	}
	if cfg.LockTimeout > 0 {
		c.app.SetLockTimeout(time.Duration(cfg.LockTimeout))
	}
	if mode, _ := cmd.Flags().GetString("telemetry"); mode != "" {
		cfg.Telemetry = mode
	}
	switch cfg.Telemetry {
	case settings.TelemetryOtel:
		c.app.SetTracer(telemetry.NewOtelTracer())
	case settings.TelemetryNone:
		c.app.SetTracer(telemetry.NewNoOpTracer())
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to determine home directory")
	}

	inv := &invocation{
		rootDir:   rootDir,
		cacheRoot: cfg.CacheRoot(rootDir, home),
	}
	if offline, _ := cmd.Flags().GetBool("offline"); !offline {
		for _, u := range cfg.Registries {
			inv.registries = append(inv.registries, registry.NewHTTP(u, c.logger))
		}
	}
	return inv, nil
}
