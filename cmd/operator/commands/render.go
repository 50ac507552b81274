package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubesphere/devworkspace-operator/cmd/operator/handlers"
)

// Render returns the command that prints the effective configuration of a
// workspace without contacting a cluster.
//
// Required flags:
//
//	--template, -t: DevWorkspaceTemplate manifest
//	--workspace, -w: DevWorkspace manifest
func Render() *cobra.Command {
	var (
		templatePath  string
		workspacePath string
		objects       bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the effective configuration of a workspace",
		Long: `Merge a workspace's overrides into its template and print the result.

With --objects the volume claim, pod, and service the operator would create
are printed instead.

Examples:
  devworkspace-operator render -t template.yaml -w workspace.yaml
  devworkspace-operator render -t template.yaml -w workspace.yaml --objects`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Render(cmd.OutOrStdout(), templatePath, workspacePath, objects)
		},
	}

	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "Path to DevWorkspaceTemplate manifest")
	cmd.Flags().StringVarP(&workspacePath, "workspace", "w", "", "Path to DevWorkspace manifest")
	cmd.Flags().BoolVar(&objects, "objects", false, "Print the managed objects instead of the configuration")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("workspace")

	return cmd
}
