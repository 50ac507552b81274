package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the prefix of environment overrides.
const DefaultEnvPrefix = "DEVWORKSPACE"

// Loader layers defaults, a YAML file, and environment variables.
type Loader struct {
	// ConfigFile is the path to the YAML configuration file
	ConfigFile string
	// EnvPrefix is the prefix for environment variables
	EnvPrefix string

	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader reading DEVWORKSPACE_* variables.
func NewLoader() *Loader {
	return &Loader{
		EnvPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// WithConfigFile sets the configuration file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.ConfigFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.EnvPrefix = prefix
	return l
}

// Load builds the configuration. Later sources win:
// defaults, then the file, then the environment.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.ConfigFile != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", l.ConfigFile, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config file %s: %w", l.ConfigFile, err)
	}
	return nil
}

// envBinding ties one environment variable to one field.
type envBinding struct {
	key   string
	apply func(cfg *Config, val string) error
}

var envBindings = []envBinding{
	{"METRICS_BIND_ADDRESS", func(c *Config, v string) error { c.Manager.MetricsBindAddress = v; return nil }},
	{"HEALTH_PROBE_BIND_ADDRESS", func(c *Config, v string) error { c.Manager.HealthProbeBindAddress = v; return nil }},
	{"LEADER_ELECTION", func(c *Config, v string) error { return parseBool(v, &c.Manager.LeaderElection) }},
	{"LEADER_ELECTION_ID", func(c *Config, v string) error { c.Manager.LeaderElectionID = v; return nil }},
	{"WATCH_NAMESPACE", func(c *Config, v string) error { c.Manager.WatchNamespace = v; return nil }},
	{"MAX_CONCURRENT_RECONCILES", func(c *Config, v string) error { return parseInt(v, &c.Manager.MaxConcurrentReconciles) }},

	{"WORKLOAD_LABEL", func(c *Config, v string) error { c.Provisioning.WorkloadLabel = v; return nil }},
	{"CONTAINER_NAME", func(c *Config, v string) error { c.Provisioning.ContainerName = v; return nil }},
	{"MOUNT_PATH", func(c *Config, v string) error { c.Provisioning.MountPath = v; return nil }},
	{"SERVER_PORT", func(c *Config, v string) error { return parseInt32(v, &c.Provisioning.ServerPort) }},
	{"DEFAULT_STORAGE_SIZE", func(c *Config, v string) error { c.Provisioning.DefaultStorageSize = v; return nil }},
	{"DEFAULT_SERVICE_PORT", func(c *Config, v string) error { return parseInt32(v, &c.Provisioning.DefaultServicePort) }},

	{"READINESS_ATTEMPTS", func(c *Config, v string) error { return parseInt(v, &c.Readiness.Attempts) }},
	{"READINESS_INTERVAL", func(c *Config, v string) error { return parseDuration(v, &c.Readiness.Interval) }},
	{"ENDPOINT_ATTEMPTS", func(c *Config, v string) error { return parseInt(v, &c.Endpoint.Attempts) }},
	{"ENDPOINT_INTERVAL", func(c *Config, v string) error { return parseDuration(v, &c.Endpoint.Interval) }},
	{"RECREATE_WAIT_ATTEMPTS", func(c *Config, v string) error { return parseInt(v, &c.RecreateWait.Attempts) }},
	{"RECREATE_WAIT_INTERVAL", func(c *Config, v string) error { return parseDuration(v, &c.RecreateWait.Interval) }},
	{"RETRY_DELAY", func(c *Config, v string) error { return parseDuration(v, &c.RetryDelay) }},

	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Logging.Format = v; return nil }},
	{"LOG_DEVELOPMENT", func(c *Config, v string) error { return parseBool(v, &c.Logging.Development) }},
	{"METRICS_ENABLED", func(c *Config, v string) error { return parseBool(v, &c.Metrics.Enabled) }},
}

// loadFromEnv applies every non-empty variable. A malformed value is an error.
func (l *Loader) loadFromEnv(cfg *Config) error {
	lookup := l.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, b := range envBindings {
		name := l.EnvPrefix + "_" + b.key
		val, ok := lookup(name)
		if !ok || val == "" {
			continue
		}
		if err := b.apply(cfg, val); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func parseBool(val string, out *bool) error {
	switch strings.ToLower(val) {
	case "true", "1", "yes", "on":
		*out = true
	case "false", "0", "no", "off":
		*out = false
	default:
		return fmt.Errorf("invalid boolean %q", val)
	}
	return nil
}

func parseInt(val string, out *int) error {
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid integer %q", val)
	}
	*out = i
	return nil
}

func parseInt32(val string, out *int32) error {
	i, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid integer %q", val)
	}
	*out = int32(i)
	return nil
}

func parseDuration(val string, out *time.Duration) error {
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid duration %q", val)
	}
	*out = d
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}
	return nil
}
