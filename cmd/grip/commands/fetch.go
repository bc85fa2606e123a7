package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every package pinned in the lockfile into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := c.resolveInvocation(cmd)
			if err != nil {
				return err
			}
			sel, err := c.app.Describe(cmd.Context(), inv.rootDir)
			if err != nil {
				return err
			}
			paths, err := c.app.EnsureAll(cmd.Context(), sel, inv.cacheRoot, inv.registries)
			if err != nil {
				return err
			}
			c.logger.Info("packages fetched", "packages", len(paths))
			return nil
		},
	}
}
