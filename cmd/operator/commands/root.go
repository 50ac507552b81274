// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command. Without a subcommand it runs the operator.
func Root() *cobra.Command {
	run := Run()

	cmd := &cobra.Command{
		Use:          "devworkspace-operator",
		Short:        "Run code-server workspaces on Kubernetes",
		SilenceUsage: true,
		RunE:         run.RunE,
	}
	cmd.Flags().AddFlagSet(run.Flags())

	cmd.AddCommand(run)
	cmd.AddCommand(Render())
	cmd.AddCommand(Config())
	cmd.AddCommand(Version())

	return cmd
}
