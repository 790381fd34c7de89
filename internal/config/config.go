package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"translator/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TRANSLATOR_"

// DefaultEnvFile is read when TRANSLATOR_ENV_FILE is not set.
const DefaultEnvFile = ".env"

// Load loads configuration from defaults, an optional .env file, the YAML
// file and TRANSLATOR_* environment variables, in that order.
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Populate the process environment from a dotenv file without overriding
	// variables that are already set
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnvironment(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if explicit {
			return fmt.Errorf("env file not found: %s", path)
		}
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	slog.Debug("Loaded environment file", "path", path)
	return nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// envOverrides collects parse failures so a typo in one variable names itself
// instead of being silently ignored.
type envOverrides struct {
	errs []error
}

func (e *envOverrides) str(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
		*dst = v
	}
}

func (e *envOverrides) int(name string, dst *int) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = n
}

func (e *envOverrides) bool(name string, dst *bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	*dst = strings.ToLower(v) == "true"
}

func (e *envOverrides) duration(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = d
}

func (e *envOverrides) float(name string, dst *float64) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = f
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) error {
	env := &envOverrides{}

	// Server configuration
	env.int("PORT", &config.Server.Port)
	env.str("HOST", &config.Server.Host)
	env.duration("READ_TIMEOUT", &config.Server.ReadTimeout)
	env.duration("WRITE_TIMEOUT", &config.Server.WriteTimeout)
	env.duration("IDLE_TIMEOUT", &config.Server.IdleTimeout)

	// Storage configuration
	env.str("STORAGE_TYPE", &config.Storage.Type)
	env.str("STORAGE_PATH", &config.Storage.Path)
	env.str("DATABASE_DSN", &config.Storage.Database.DSN)
	env.int("DATABASE_MAX_OPEN_CONNS", &config.Storage.Database.MaxOpenConns)
	env.int("DATABASE_MAX_IDLE_CONNS", &config.Storage.Database.MaxIdleConns)
	env.duration("DATABASE_QUERY_TIMEOUT", &config.Storage.Database.QueryTimeout)
	env.str("REDIS_ADDR", &config.Storage.Redis.Addr)
	env.str("REDIS_PASSWORD", &config.Storage.Redis.Password)
	env.int("REDIS_DB", &config.Storage.Redis.DB)
	env.str("REDIS_KEY_PREFIX", &config.Storage.Redis.KeyPrefix)

	// Quota configuration
	env.int("QUOTA_LIMIT", &config.Quota.Limit)
	env.duration("QUOTA_WINDOW", &config.Quota.Window)
	env.str("QUOTA_STATE_KEY", &config.Quota.StateKey)

	// Session configuration
	env.str("SESSION_SOURCE", &config.Session.Source)
	env.str("SESSION_PATH", &config.Session.Path)
	env.bool("SESSION_WATCH", &config.Session.Watch)
	env.str("SESSION_USER_ID", &config.Session.Static.UserID)
	env.str("SESSION_USER_NAME", &config.Session.Static.UserName)
	env.str("SESSION_ROLE", &config.Session.Static.Role)
	env.str("SESSION_TOKEN", &config.Session.Static.Token)

	// Backend configuration
	env.str("BACKEND_URL", &config.Backend.BaseURL)
	env.duration("BACKEND_TIMEOUT", &config.Backend.Timeout)

	// Notification configuration
	env.str("NOTIFY_INBOX_PATH", &config.Notifications.InboxPath)
	env.bool("NOTIFY_REMOTE_ENABLED", &config.Notifications.RemoteEnabled)
	env.int("NOTIFY_REMOTE_PER_MINUTE", &config.Notifications.RemotePerMinute)
	env.duration("NOTIFY_DISPATCH_TIMEOUT", &config.Notifications.DispatchTimeout)

	// Logging configuration
	env.str("LOG_LEVEL", &config.Logging.Level)
	env.str("LOG_FORMAT", &config.Logging.Format)
	env.str("LOG_OUTPUT", &config.Logging.Output)
	env.str("LOG_FILE_PATH", &config.Logging.FilePath)
	env.int("LOG_MAX_SIZE", &config.Logging.MaxSize)
	env.int("LOG_MAX_BACKUPS", &config.Logging.MaxBackups)
	env.int("LOG_MAX_AGE", &config.Logging.MaxAge)
	env.bool("LOG_COMPRESS", &config.Logging.Compress)

	// Metrics configuration
	env.bool("METRICS_ENABLED", &config.Metrics.Enabled)
	env.str("METRICS_PATH", &config.Metrics.Path)
	env.int("METRICS_PORT", &config.Metrics.Port)

	// Observability configuration
	env.str("SERVICE_NAME", &config.Observability.ServiceName)
	env.bool("TRACING_ENABLED", &config.Observability.Tracing.Enabled)
	env.str("TRACING_EXPORTER", &config.Observability.Tracing.Exporter)
	env.str("TRACING_OTLP_ENDPOINT", &config.Observability.Tracing.OTLPEndpoint)
	env.float("TRACING_SAMPLE_RATE", &config.Observability.Tracing.SampleRate)

	return errors.Join(env.errs...)
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	// Example identity for the static session source
	config.Session.Static = models.StaticSessionConfig{
		UserID:   "user-123",
		UserName: "Jane Doe",
		Role:     "user",
		Token:    "your-bearer-token-here",
	}
	config.Storage.Database.DSN = "file:./data/state.db"
	config.Storage.Redis.Addr = "localhost:6379"

	// Marshal to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// Write to file
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
