package journal

import (
	"context"
	"fmt"
)

// Backend names accepted by Open
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds journal configuration
type Config struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	DSN        string `yaml:"dsn"`
	BufferSize int    `yaml:"buffer_size"`
}

// DefaultConfig disables the journal
func DefaultConfig() Config {
	return Config{Backend: BackendNone, BufferSize: 256}
}

// Open returns the store selected by config. BackendNone yields a nil store.
func Open(ctx context.Context, config Config) (Store, error) {
	switch config.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendCSV:
		if config.Path == "" {
			return nil, fmt.Errorf("csv journal needs a path")
		}
		return NewCSVStore(config.Path)
	case BackendSQLite:
		if config.Path == "" {
			return nil, fmt.Errorf("sqlite journal needs a path")
		}
		return NewSQLiteStore(config.Path)
	case BackendPostgres:
		if config.DSN == "" {
			return nil, fmt.Errorf("postgres journal needs a dsn")
		}
		return NewPostgresStore(ctx, config.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Backend)
	}
}
