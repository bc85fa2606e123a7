package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the resolved versions from the lockfile",
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
			for _, name := range sel.Names() {
				pin, _ := sel.Get(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name.String(), pin.String())
			}
			return nil
		},
	}
}
