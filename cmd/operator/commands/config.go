package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubesphere/devworkspace-operator/cmd/operator/handlers"
)

// Config returns the command that prints the layered operator configuration.
func Config() *cobra.Command {
	var (
		configPath string
		writePath  string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective operator configuration",
		Long: `Load the operator configuration the way 'run' does and print it as YAML.

Examples:
  # Show the defaults merged with the environment
  devworkspace-operator config

  # Write a starting configuration file
  devworkspace-operator config --write operator.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.PrintConfig(cmd.OutOrStdout(), configPath, writePath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to operator configuration file")
	cmd.Flags().StringVar(&writePath, "write", "", "Write the configuration to this file instead of printing it")

	return cmd
}
