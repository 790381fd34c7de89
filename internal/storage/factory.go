package storage

import (
	"fmt"
	"translator/internal/models"
)

// Factory provides a centralized way to create stores based on configuration.
type Factory struct{}

// NewFactory creates a new storage factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a store based on the provided configuration.
// Supported providers:
//   - memory: in-process map (tests and development)
//   - json: single JSON document on disk
//   - sqlite: SQLite database file
//   - postgres: PostgreSQL database
//   - redis: Redis keys under a prefix
func (f *Factory) Create(config models.StorageConfig) (Store, error) {
	if err := f.ValidateConfig(config); err != nil {
		return nil, err
	}

	switch config.Type {
	case models.StorageTypeMemory:
		return NewMemoryStore(), nil
	case models.StorageTypeJSON:
		return NewJSONStore(config.Path)
	case models.StorageTypeSQLite:
		return NewSQLiteStore(config.Database)
	case models.StorageTypePostgres:
		return NewPostgresStore(config.Database)
	case models.StorageTypeRedis:
		return NewRedisStore(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

// GetSupportedProviders returns a list of all supported storage provider types
func (f *Factory) GetSupportedProviders() []string {
	return models.SupportedStorageTypes()
}

// ValidateConfig validates that a storage configuration is valid for its type
func (f *Factory) ValidateConfig(config models.StorageConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("unsupported storage configuration: %w", err)
	}
	return nil
}
