package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Resolve dependencies (reusing the lockfile when valid) and fetch them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := c.resolveInvocation(cmd)
			if err != nil {
				return err
			}
			sel, err := c.app.ResolveForBuild(cmd.Context(), inv.rootDir, inv.cacheRoot, inv.registries)
			if err != nil {
				return err
			}
			paths, err := c.app.EnsureAll(cmd.Context(), sel, inv.cacheRoot, inv.registries)
			if err != nil {
				return err
			}
			c.logger.Info("dependencies ready", "packages", len(paths))
			return nil
		},
	}
}
