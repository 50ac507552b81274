package controller

import (
	"time"

	"github.com/kubesphere/devworkspace-operator/internal/config"
	"github.com/kubesphere/devworkspace-operator/internal/operator/provisioning"
	"github.com/kubesphere/devworkspace-operator/internal/util/retry"
)

// Settings are the reconciler's tunables.
type Settings struct {
	// RetryDelay is the requeue delay after a retryable failure
	RetryDelay time.Duration

	Readiness retry.Policy
	Endpoint  retry.Policy

	// Provisioning shapes managed objects and bounds the wait for pod deletion
	Provisioning provisioning.Options

	MaxConcurrentReconciles int
}

// SettingsFromConfig maps the operator configuration onto reconciler settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	p := cfg.Provisioning
	return Settings{
		RetryDelay: cfg.RetryDelay,
		Readiness:  retry.NewPolicy(cfg.Readiness.Attempts, cfg.Readiness.Interval),
		Endpoint:   retry.NewPolicy(cfg.Endpoint.Attempts, cfg.Endpoint.Interval),
		Provisioning: provisioning.Options{
			WorkloadLabel:      p.WorkloadLabel,
			ContainerName:      p.ContainerName,
			MountPath:          p.MountPath,
			ServerPort:         p.ServerPort,
			DefaultStorageSize: p.DefaultStorageSize,
			DefaultServicePort: p.DefaultServicePort,
			DeletionWait:       retry.NewPolicy(cfg.RecreateWait.Attempts, cfg.RecreateWait.Interval),
		},
		MaxConcurrentReconciles: cfg.Manager.MaxConcurrentReconciles,
	}
}

// DefaultSettings returns the settings of the default configuration.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.DefaultConfig())
}
