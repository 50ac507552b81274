package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubesphere/devworkspace-operator/cmd/operator/handlers"
)

// Run returns the command that starts the controller manager.
//
// Optional flags:
//
//	--config, -c: Path to operator configuration YAML file
//	--metrics-bind-address, --health-probe-bind-address, --leader-elect,
//	--watch-namespace: override the matching configuration fields
//
// Environment variables prefixed with DEVWORKSPACE_ override the file.
func Run() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the operator",
		Long: `Start the DevWorkspace controller manager.

Configuration is layered: built-in defaults, then the YAML file given with
--config, then DEVWORKSPACE_* environment variables, then flags.

Examples:
  # Run with defaults against the current kubeconfig
  devworkspace-operator run

  # Watch a single namespace with a config file
  devworkspace-operator run -c operator.yaml --watch-namespace dev`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			opts.MetricsAddrSet = flags.Changed("metrics-bind-address")
			opts.ProbeAddrSet = flags.Changed("health-probe-bind-address")
			opts.LeaderElectSet = flags.Changed("leader-elect")
			opts.WatchNamespaceSet = flags.Changed("watch-namespace")
			opts.Version = version
			return handlers.Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to operator configuration file")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to")
	cmd.Flags().StringVar(&opts.ProbeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to")
	cmd.Flags().BoolVar(&opts.LeaderElect, "leader-elect", true, "Enable leader election for controller manager")
	cmd.Flags().StringVar(&opts.WatchNamespace, "watch-namespace", "", "Restrict the operator to one namespace (default: all)")

	return cmd
}
