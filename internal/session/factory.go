package session

import (
	"fmt"
	"log/slog"
)

// BackendType selects where sessions are kept.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

// IsValid checks if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// String returns the string representation of the backend type
func (bt BackendType) String() string {
	return string(bt)
}

// BackendTypes returns all valid backend types
func BackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}

// Config holds what NewStore needs.
type Config struct {
	Type         BackendType
	SQLiteDBPath string
}

// NewStore creates the store for cfg.Type.
func NewStore(cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid session backend: %s", cfg.Type)
	}

	switch cfg.Type {
	case SQLiteBackend:
		if cfg.SQLiteDBPath == "" {
			return nil, fmt.Errorf("SQLite database path is required for sqlite session backend")
		}
		store, err := NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		logger.Info("Initialized SQLite session store", "db_path", cfg.SQLiteDBPath)
		return store, nil
	default:
		logger.Info("Initialized in-memory session store")
		return NewMemoryStore(), nil
	}
}
