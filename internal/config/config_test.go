package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"translator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test_config.yaml")

	configContent := `
server:
  port: 9000
  host: "localhost"
  read_timeout: 30s

storage:
  type: "sqlite"
  database:
    dsn: "file:quota.db"

quota:
  limit: 3
  window: 1m
  state_key: "custom_key"

session:
  source: "static"
  static:
    user_id: "u-1"
    user_name: "Ana"
    role: "user"
    token: "tok"

backend:
  base_url: "https://translate.example.com"
  timeout: 5s

logging:
  level: "debug"
  format: "text"
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, models.StorageTypeSQLite, config.Storage.Type)
	assert.Equal(t, "file:quota.db", config.Storage.Database.DSN)
	assert.Equal(t, 3, config.Quota.Limit)
	assert.Equal(t, time.Minute, config.Quota.Window)
	assert.Equal(t, "custom_key", config.Quota.StateKey)
	assert.Equal(t, models.SessionSourceStatic, config.Session.Source)
	assert.Equal(t, "Ana", config.Session.Static.UserName)
	assert.Equal(t, "https://translate.example.com", config.Backend.BaseURL)
	assert.Equal(t, "debug", config.Logging.Level)

	// Unset sections keep their defaults
	assert.Equal(t, 6, config.Notifications.RemotePerMinute)
	assert.Equal(t, "/metrics", config.Metrics.Path)
}

func TestLoad_WithoutConfigFile(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, models.NewDefaultConfig(), config)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("quota: [unterminated"), 0644))

	_, err := Load(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestLoad_InvalidConfiguration(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("quota:\n  limit: 0\n"), 0644))

	_, err := Load(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be positive")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TRANSLATOR_PORT", "9100")
	t.Setenv("TRANSLATOR_STORAGE_TYPE", "redis")
	t.Setenv("TRANSLATOR_REDIS_ADDR", "localhost:6379")
	t.Setenv("TRANSLATOR_QUOTA_LIMIT", "10")
	t.Setenv("TRANSLATOR_QUOTA_WINDOW", "45s")
	t.Setenv("TRANSLATOR_SESSION_WATCH", "false")
	t.Setenv("TRANSLATOR_METRICS_ENABLED", "true")
	t.Setenv("TRANSLATOR_TRACING_SAMPLE_RATE", "0.25")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, models.StorageTypeRedis, config.Storage.Type)
	assert.Equal(t, "localhost:6379", config.Storage.Redis.Addr)
	assert.Equal(t, 10, config.Quota.Limit)
	assert.Equal(t, 45*time.Second, config.Quota.Window)
	assert.False(t, config.Session.Watch)
	assert.True(t, config.Metrics.Enabled)
	assert.InDelta(t, 0.25, config.Observability.Tracing.SampleRate, 1e-9)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("quota:\n  limit: 3\n"), 0644))
	t.Setenv("TRANSLATOR_QUOTA_LIMIT", "12")

	config, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, 12, config.Quota.Limit)
}

func TestLoad_MalformedEnvironmentValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "int", key: "TRANSLATOR_QUOTA_LIMIT", value: "seven"},
		{name: "duration", key: "TRANSLATOR_QUOTA_WINDOW", value: "30"},
		{name: "float", key: "TRANSLATOR_TRACING_SAMPLE_RATE", value: "half"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "agent.env")
	content := "TRANSLATOR_QUOTA_LIMIT=4\nTRANSLATOR_BACKEND_URL=https://api.example.com\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0600))

	t.Setenv("TRANSLATOR_ENV_FILE", envFile)
	// Already-set variables win over the file
	t.Setenv("TRANSLATOR_BACKEND_URL", "https://override.example.com")
	// godotenv sets variables the test did not register; clean them up
	t.Cleanup(func() { os.Unsetenv("TRANSLATOR_QUOTA_LIMIT") })

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, config.Quota.Limit)
	assert.Equal(t, "https://override.example.com", config.Backend.BaseURL)
}

func TestLoad_MissingExplicitDotEnvFile(t *testing.T) {
	t.Setenv("TRANSLATOR_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env file not found")
}

func TestSaveExample(t *testing.T) {
	examplePath := filepath.Join(t.TempDir(), "nested", "config.example.yaml")

	require.NoError(t, SaveExample(examplePath))

	config, err := Load(examplePath)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", config.Session.Static.UserName)
	assert.Equal(t, 7, config.Quota.Limit)
	assert.Equal(t, 30*time.Second, config.Quota.Window)
}
