// Package handlers implements the business logic for CLI commands.
//
// Handlers are called by command definitions in the commands package and can
// be tested without the CLI framework.
package handlers

import (
	"context"
	"fmt"

	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/config"
	"github.com/kubesphere/devworkspace-operator/internal/logging"
	"github.com/kubesphere/devworkspace-operator/internal/operator/controller"
)

// RunOptions carries the run command's flags. The *Set fields record which
// flags were given explicitly; only those override the configuration.
type RunOptions struct {
	ConfigPath string
	Version    string

	MetricsAddr    string
	ProbeAddr      string
	LeaderElect    bool
	WatchNamespace string

	MetricsAddrSet    bool
	ProbeAddrSet      bool
	LeaderElectSet    bool
	WatchNamespaceSet bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// getRESTConfig resolves the cluster connection.
	getRESTConfig = ctrl.GetConfig

	// newManager creates the controller manager.
	newManager = func(cfg *rest.Config, opts ctrl.Options) (ctrl.Manager, error) {
		return ctrl.NewManager(cfg, opts)
	}

	// newLoader creates the configuration loader.
	newLoader = config.NewLoader
)

// Run loads the configuration, builds the manager, registers the
// DevWorkspace controller, and blocks until ctx is canceled.
func Run(ctx context.Context, opts RunOptions) error {
	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}

	ctrl.SetLogger(logging.New(cfg.Logging, nil))
	setupLog := ctrl.Log.WithName("setup")
	setupLog.Info("starting devworkspace-operator", "version", opts.Version, "watchNamespace", cfg.Manager.WatchNamespace)

	restConfig, err := getRESTConfig()
	if err != nil {
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	mgr, err := newManager(restConfig, managerOptions(cfg))
	if err != nil {
		return fmt.Errorf("unable to create manager: %w", err)
	}

	if err := controller.NewDevWorkspaceReconciler(
		mgr.GetClient(),
		mgr.GetScheme(),
		mgr.GetEventRecorderFor("devworkspace-controller"),
		controller.WithSettings(controller.SettingsFromConfig(cfg)),
		controller.WithAPIReader(mgr.GetAPIReader()),
		controller.WithMetrics(cfg.Metrics.Enabled),
	).SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create controller DevWorkspace: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("problem running manager: %w", err)
	}
	return nil
}

// loadRunConfig layers explicit flags over the loaded configuration.
func loadRunConfig(opts RunOptions) (*config.Config, error) {
	cfg, err := newLoader().WithConfigFile(opts.ConfigPath).Load()
	if err != nil {
		return nil, err
	}

	if opts.MetricsAddrSet {
		cfg.Manager.MetricsBindAddress = opts.MetricsAddr
	}
	if opts.ProbeAddrSet {
		cfg.Manager.HealthProbeBindAddress = opts.ProbeAddr
	}
	if opts.LeaderElectSet {
		cfg.Manager.LeaderElection = opts.LeaderElect
	}
	if opts.WatchNamespaceSet {
		cfg.Manager.WatchNamespace = opts.WatchNamespace
	}
	return cfg, nil
}

// managerOptions maps the configuration onto controller manager options.
func managerOptions(cfg *config.Config) ctrl.Options {
	opts := ctrl.Options{
		Scheme: devworkspacev1alpha1.Scheme,
		Metrics: metricsserver.Options{
			BindAddress: cfg.Manager.MetricsBindAddress,
		},
		HealthProbeBindAddress: cfg.Manager.HealthProbeBindAddress,
		LeaderElection:         cfg.Manager.LeaderElection,
		LeaderElectionID:       cfg.Manager.LeaderElectionID,
		// Run returns as soon as the manager stops.
		LeaderElectionReleaseOnCancel: true,
	}

	if !cfg.Metrics.Enabled {
		opts.Metrics.BindAddress = "0"
	}
	if ns := cfg.Manager.WatchNamespace; ns != "" {
		opts.Cache = cache.Options{
			DefaultNamespaces: map[string]cache.Config{ns: {}},
		}
	}
	return opts
}
