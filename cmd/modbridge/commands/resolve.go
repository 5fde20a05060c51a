package commands

import "github.com/spf13/cobra"

func (c *CLI) newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <specifier> [specifier...]",
		Short: "Resolve specifiers to their canonical form",
		Long: "Resolve runs the inspection tool for each specifier not already " +
			"cached and prints the canonical specifier and module shape.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Resolve(cmd.Context(), cmd.OutOrStdout(), c.dir, args)
		},
	}
}
