package commands

import "github.com/spf13/cobra"

func (c *CLI) newDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps <specifier>",
		Short: "List the transitive dependencies of a specifier",
		Long: "Deps resolves the specifier and prints every canonical specifier " +
			"reachable from it, sorted, one per line. Unresolvable edges are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Deps(cmd.Context(), cmd.OutOrStdout(), c.dir, args[0])
		},
	}
}
