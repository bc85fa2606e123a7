package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/grip/internal/core/domain"
)

func (c *CLI) newUpgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade [package]",
		Short: "Re-resolve dependencies, optionally scoped to one package",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := c.resolveInvocation(cmd)
			if err != nil {
				return err
			}
			var scope *domain.PackageName
			if len(args) == 1 {
				name := domain.Name(args[0])
				scope = &name
			}
			sel, err := c.app.ResolveForUpgrade(cmd.Context(), inv.rootDir, scope, inv.cacheRoot, inv.registries)
			if err != nil {
				return err
			}
			if _, err := c.app.EnsureAll(cmd.Context(), sel, inv.cacheRoot, inv.registries); err != nil {
				return err
			}
			c.logger.Info("selections upgraded", "packages", sel.Len())
			return nil
		},
	}
}
