package commands

import "github.com/spf13/cobra"

func (c *CLI) newTranslateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <pkg-specifier> [pkg-specifier...]",
		Short: "Translate foreign-package specifiers to native bundler ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Translate(cmd.OutOrStdout(), args)
		},
	}
}
