// Package models - Agent configuration and operational settings.
// This file defines the configuration structures for every component of the
// translator agent: the local API server, the quota state store, the quota
// window itself, the signed-in session, the translation backend, notifications,
// logging and observability.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping
// - Defaults that run out of the box on a single device
// - Validation that catches misconfigurations before anything starts
package models

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeJSON     = "json"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
	StorageTypeRedis    = "redis"
)

// Session source constants
const (
	SessionSourceFile   = "file"
	SessionSourceStatic = "static"
)

// Config is the root configuration structure containing all agent settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // Local HTTP API
	Storage       StorageConfig       `yaml:"storage" json:"storage"`             // Quota state persistence
	Quota         QuotaConfig         `yaml:"quota" json:"quota"`                 // Rolling window settings
	Session       SessionConfig       `yaml:"session" json:"session"`             // Signed-in identity and role
	Backend       BackendConfig       `yaml:"backend" json:"backend"`             // Translation API
	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"` // Local and admin notices
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path" json:"path"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
}

type DatabaseConfig struct {
	DSN          string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// QuotaConfig fixes the translation window. It is read once at start-up and
// never changed while the agent runs.
type QuotaConfig struct {
	Limit    int           `yaml:"limit" json:"limit"`
	Window   time.Duration `yaml:"window" json:"window"`
	StateKey string        `yaml:"state_key" json:"state_key"`
}

type SessionConfig struct {
	Source string              `yaml:"source" json:"source"`
	Path   string              `yaml:"path" json:"path"`
	Watch  bool                `yaml:"watch" json:"watch"`
	Static StaticSessionConfig `yaml:"static" json:"static"`
}

type StaticSessionConfig struct {
	UserID   string `yaml:"user_id" json:"user_id"`
	UserName string `yaml:"user_name" json:"user_name"`
	Role     string `yaml:"role" json:"role"`
	Token    string `yaml:"token" json:"token"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type NotificationsConfig struct {
	InboxPath     string `yaml:"inbox_path" json:"inbox_path"`
	RemoteEnabled bool   `yaml:"remote_enabled" json:"remote_enabled"`
	// RemotePerMinute caps outbound admin escalations across all windows.
	RemotePerMinute int           `yaml:"remote_per_minute" json:"remote_per_minute"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout" json:"dispatch_timeout"`
	RestoredTitle   string        `yaml:"restored_title" json:"restored_title"`
	RestoredBody    string        `yaml:"restored_body" json:"restored_body"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with defaults suited to a single
// device: loopback API, JSON file state, 7 translations per 30 seconds.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8765,
			Host:         "127.0.0.1",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 45 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Storage: StorageConfig{
			Type: StorageTypeJSON,
			Path: "./data/state.json",
			Database: DatabaseConfig{
				MaxOpenConns: 4,
				MaxIdleConns: 2,
				QueryTimeout: 5 * time.Second,
			},
			Redis: RedisConfig{
				KeyPrefix: "translator",
			},
		},
		Quota: QuotaConfig{
			Limit:    7,
			Window:   30 * time.Second,
			StateKey: "translation_rate_limit",
		},
		Session: SessionConfig{
			Source: SessionSourceFile,
			Path:   "./data/session.json",
			Watch:  true,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Notifications: NotificationsConfig{
			InboxPath:       "./data/notifications.jsonl",
			RemoteEnabled:   true,
			RemotePerMinute: 6,
			DispatchTimeout: 10 * time.Second,
			RestoredTitle:   "Translation limit restored",
			RestoredBody:    "Your translation limit has been restored. You can translate again!",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
			Port:    9465,
		},
		Observability: ObservabilityConfig{
			ServiceName: "translator",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Quota.Validate(); err != nil {
		return fmt.Errorf("invalid quota config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}

	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("invalid backend config: %w", err)
	}

	if err := c.Notifications.Validate(); err != nil {
		return fmt.Errorf("invalid notifications config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	return nil
}

func (stc *StorageConfig) Validate() error {
	if !slices.Contains(SupportedStorageTypes(), stc.Type) {
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}

	switch stc.Type {
	case StorageTypeJSON:
		if stc.Path == "" {
			return errors.New("path is required for JSON storage")
		}
	case StorageTypeSQLite, StorageTypePostgres:
		if stc.Database.DSN == "" {
			return errors.New("database DSN is required for database storage")
		}
	case StorageTypeRedis:
		if stc.Redis.Addr == "" {
			return errors.New("redis address is required for redis storage")
		}
	}

	return nil
}

// SupportedStorageTypes lists every quota state backend.
func SupportedStorageTypes() []string {
	return []string{StorageTypeMemory, StorageTypeJSON, StorageTypeSQLite, StorageTypePostgres, StorageTypeRedis}
}

func (qc *QuotaConfig) Validate() error {
	if qc.Limit <= 0 {
		return errors.New("limit must be positive")
	}

	if qc.Window <= 0 {
		return errors.New("window must be positive")
	}

	if qc.StateKey == "" {
		return errors.New("state key cannot be empty")
	}

	return nil
}

func (sc *SessionConfig) Validate() error {
	switch sc.Source {
	case SessionSourceFile:
		if sc.Path == "" {
			return errors.New("path is required for file sessions")
		}
	case SessionSourceStatic:
	default:
		return fmt.Errorf("invalid session source: %s", sc.Source)
	}
	return nil
}

func (bc *BackendConfig) Validate() error {
	if bc.BaseURL == "" {
		return errors.New("base URL cannot be empty")
	}

	u, err := url.Parse(bc.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL: %s", bc.BaseURL)
	}

	if bc.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}

	return nil
}

func (nc *NotificationsConfig) Validate() error {
	if nc.RemoteEnabled && nc.RemotePerMinute <= 0 {
		return errors.New("remote_per_minute must be positive when remote notifications are enabled")
	}

	if nc.DispatchTimeout < 0 {
		return errors.New("dispatch timeout cannot be negative")
	}

	if nc.RestoredTitle == "" {
		return errors.New("restored title cannot be empty")
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !slices.Contains([]string{"json", "text"}, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !slices.Contains([]string{"stdout", "stderr", "file"}, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}

	if !oc.Tracing.Enabled {
		return nil
	}

	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("otlp endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("sample rate must be between 0 and 1")
	}

	return nil
}
