// Package main is the entrypoint for the devworkspace-operator.
//
// The operator reconciles DevWorkspace resources into a volume claim, a
// code-server pod, and a service. The same binary can render the effective
// configuration of a workspace offline.
//
// Commands: run (default), render, config, version.
package main

import (
	"fmt"
	"os"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kubesphere/devworkspace-operator/cmd/operator/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctrl.SetupSignalHandler()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
