package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoader_NewLoader(t *testing.T) {
	loader := NewLoader()
	assert.Equal(t, "DEVWORKSPACE", loader.EnvPrefix)
	assert.Empty(t, loader.ConfigFile)

	loader = loader.WithConfigFile("/etc/devworkspace/config.yaml").WithEnvPrefix("TEST")
	assert.Equal(t, "/etc/devworkspace/config.yaml", loader.ConfigFile)
	assert.Equal(t, "TEST", loader.EnvPrefix)
}

func TestLoader_LoadDefault(t *testing.T) {
	loader := NewLoader()
	loader.lookupEnv = mapEnv(nil)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadFromFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
manager:
  maxConcurrentReconciles: 4
  watchNamespace: team-a
provisioning:
  serverPort: 9000
  defaultStorageSize: 5Gi
readiness:
  attempts: 5
  interval: 3s
retryDelay: 2m
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configFile, []byte(yamlContent), 0o600))

	loader := NewLoader().WithConfigFile(configFile)
	loader.lookupEnv = mapEnv(nil)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Manager.MaxConcurrentReconciles)
	assert.Equal(t, "team-a", cfg.Manager.WatchNamespace)
	assert.Equal(t, int32(9000), cfg.Provisioning.ServerPort)
	assert.Equal(t, "5Gi", cfg.Provisioning.DefaultStorageSize)
	assert.Equal(t, 5, cfg.Readiness.Attempts)
	assert.Equal(t, 3*time.Second, cfg.Readiness.Interval)
	assert.Equal(t, 2*time.Minute, cfg.RetryDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// untouched sections keep their defaults
	assert.Equal(t, 10, cfg.Endpoint.Attempts)
	assert.Equal(t, "vscode-server", cfg.Provisioning.ContainerName)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("retryDelay: 2m\nreadiness:\n  attempts: 5\n"), 0o600))

	loader := NewLoader().WithConfigFile(configFile)
	loader.lookupEnv = mapEnv(map[string]string{
		"DEVWORKSPACE_RETRY_DELAY":        "15s",
		"DEVWORKSPACE_LEADER_ELECTION":    "yes",
		"DEVWORKSPACE_METRICS_ENABLED":    "false",
		"DEVWORKSPACE_SERVER_PORT":        "8443",
		"DEVWORKSPACE_ENDPOINT_INTERVAL":  "500ms",
		"DEVWORKSPACE_WORKLOAD_LABEL":     "vscode",
		"DEVWORKSPACE_LOG_LEVEL":          "",
		"OTHER_RETRY_DELAY":               "1h",
	})

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.RetryDelay)
	assert.Equal(t, 5, cfg.Readiness.Attempts)
	assert.True(t, cfg.Manager.LeaderElection)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, int32(8443), cfg.Provisioning.ServerPort)
	assert.Equal(t, 500*time.Millisecond, cfg.Endpoint.Interval)
	assert.Equal(t, "vscode", cfg.Provisioning.WorkloadLabel)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		loader := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		loader.lookupEnv = mapEnv(nil)

		_, err := loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("manager: [unclosed"), 0o600))

		loader := NewLoader().WithConfigFile(configFile)
		loader.lookupEnv = mapEnv(nil)

		_, err := loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
	})

	t.Run("malformed env value", func(t *testing.T) {
		loader := NewLoader()
		loader.lookupEnv = mapEnv(map[string]string{"DEVWORKSPACE_READINESS_ATTEMPTS": "many"})

		_, err := loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DEVWORKSPACE_READINESS_ATTEMPTS")
	})

	t.Run("invalid result", func(t *testing.T) {
		loader := NewLoader()
		loader.lookupEnv = mapEnv(map[string]string{"DEVWORKSPACE_LOG_FORMAT": "xml"})

		_, err := loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := DefaultConfig()
	cfg.RetryDelay = 90 * time.Second
	require.NoError(t, cfg.Save(path))

	loader := NewLoader().WithConfigFile(path)
	loader.lookupEnv = mapEnv(nil)
	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
