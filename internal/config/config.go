// Package config holds the operator's runtime configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// DEVWORKSPACE_* environment variables. The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Config is the complete operator configuration.
type Config struct {
	Manager      ManagerConfig      `yaml:"manager"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`

	// Readiness bounds the wait for a workspace pod to run
	Readiness PollConfig `yaml:"readiness"`
	// Endpoint bounds service address resolution
	Endpoint PollConfig `yaml:"endpoint"`
	// RecreateWait bounds the wait for an old pod to terminate before it is recreated
	RecreateWait PollConfig `yaml:"recreateWait"`

	// RetryDelay is the requeue delay after a retryable failure
	RetryDelay time.Duration `yaml:"retryDelay"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ManagerConfig configures the controller-runtime manager.
type ManagerConfig struct {
	MetricsBindAddress      string `yaml:"metricsBindAddress"`
	HealthProbeBindAddress  string `yaml:"healthProbeBindAddress"`
	LeaderElection          bool   `yaml:"leaderElection"`
	LeaderElectionID        string `yaml:"leaderElectionID"`
	WatchNamespace          string `yaml:"watchNamespace"`
	MaxConcurrentReconciles int    `yaml:"maxConcurrentReconciles"`
}

// ProvisioningConfig shapes the objects created for each workspace.
type ProvisioningConfig struct {
	WorkloadLabel      string `yaml:"workloadLabel"`
	ContainerName      string `yaml:"containerName"`
	MountPath          string `yaml:"mountPath"`
	ServerPort         int32  `yaml:"serverPort"`
	DefaultStorageSize string `yaml:"defaultStorageSize"`
	DefaultServicePort int32  `yaml:"defaultServicePort"`
}

// PollConfig is a bounded, fixed-interval poll.
type PollConfig struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is json, console, or auto (console on a terminal)
	Format      string `yaml:"format"`
	Development bool   `yaml:"development"`
}

// MetricsConfig toggles the operator's own Prometheus collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Manager: ManagerConfig{
			MetricsBindAddress:      ":8080",
			HealthProbeBindAddress:  ":8081",
			LeaderElection:          false,
			LeaderElectionID:        "devworkspace-operator.kubesphere.io",
			MaxConcurrentReconciles: 1,
		},
		Provisioning: ProvisioningConfig{
			WorkloadLabel:      "devworkspace",
			ContainerName:      "vscode-server",
			MountPath:          "/workspace",
			ServerPort:         8080,
			DefaultStorageSize: "10Gi",
			DefaultServicePort: 8080,
		},
		Readiness:    PollConfig{Attempts: 30, Interval: 10 * time.Second},
		Endpoint:     PollConfig{Attempts: 10, Interval: 2 * time.Second},
		RecreateWait: PollConfig{Attempts: 30, Interval: 2 * time.Second},
		RetryDelay:   60 * time.Second,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Manager.MaxConcurrentReconciles < 1 {
		errs = append(errs, fmt.Errorf("manager.maxConcurrentReconciles must be at least 1, got %d", c.Manager.MaxConcurrentReconciles))
	}
	if c.Manager.LeaderElection && c.Manager.LeaderElectionID == "" {
		errs = append(errs, errors.New("manager.leaderElectionID is required when leader election is enabled"))
	}

	if c.Provisioning.WorkloadLabel == "" {
		errs = append(errs, errors.New("provisioning.workloadLabel must not be empty"))
	}
	if c.Provisioning.ContainerName == "" {
		errs = append(errs, errors.New("provisioning.containerName must not be empty"))
	}
	if !strings.HasPrefix(c.Provisioning.MountPath, "/") {
		errs = append(errs, fmt.Errorf("provisioning.mountPath must be absolute, got %q", c.Provisioning.MountPath))
	}
	if !validPort(c.Provisioning.ServerPort) {
		errs = append(errs, fmt.Errorf("provisioning.serverPort out of range: %d", c.Provisioning.ServerPort))
	}
	if !validPort(c.Provisioning.DefaultServicePort) {
		errs = append(errs, fmt.Errorf("provisioning.defaultServicePort out of range: %d", c.Provisioning.DefaultServicePort))
	}
	if _, err := resource.ParseQuantity(c.Provisioning.DefaultStorageSize); err != nil {
		errs = append(errs, fmt.Errorf("provisioning.defaultStorageSize %q: %w", c.Provisioning.DefaultStorageSize, err))
	}

	errs = append(errs, c.Readiness.validate("readiness")...)
	errs = append(errs, c.Endpoint.validate("endpoint")...)
	errs = append(errs, c.RecreateWait.validate("recreateWait")...)

	if c.RetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("retryDelay must be positive, got %s", c.RetryDelay))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "auto":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of json, console, auto, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func (p PollConfig) validate(name string) []error {
	var errs []error
	if p.Attempts < 1 {
		errs = append(errs, fmt.Errorf("%s.attempts must be at least 1, got %d", name, p.Attempts))
	}
	if p.Interval < 0 {
		errs = append(errs, fmt.Errorf("%s.interval must not be negative, got %s", name, p.Interval))
	}
	return errs
}

func validPort(p int32) bool {
	return p >= 1 && p <= 65535
}
