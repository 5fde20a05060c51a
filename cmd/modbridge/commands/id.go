package commands

import "github.com/spf13/cobra"

func (c *CLI) newIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <specifier> [specifier...]",
		Short: "Print the loadable bundler id for specifiers",
		Long: "ID resolves each specifier and prints the id the host bundler " +
			"loads it under: the opaque virtual id for ESM modules, the native " +
			"id for foreign packages, the module name for runtime-native modules.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.ID(cmd.Context(), cmd.OutOrStdout(), c.dir, args)
		},
	}
}
