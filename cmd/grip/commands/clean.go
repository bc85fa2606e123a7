package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/grip/internal/core/domain"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <package> <version>",
		Short: "Evict one package version from the cache",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := c.resolveInvocation(cmd)
			if err != nil {
				return err
			}
			version, err := domain.ParseVersion(args[1])
			if err != nil {
				return err
			}
			return c.app.Remove(cmd.Context(), domain.Name(args[0]), version, inv.cacheRoot)
		},
	}
}
