// Package backend selects and wires a storage adapter from configuration.
package backend

import (
	"fmt"
	"log/slog"

	"tally/internal/store"
	"tally/internal/store/memory"
	"tally/internal/store/sqlite"
)

// Type identifies a storage adapter.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// IsValid reports whether the backend type is known.
func (t Type) IsValid() bool {
	return t == SQLiteBackend || t == MemoryBackend
}

// Config holds what the factory needs to build a backend.
type Config struct {
	Type         Type
	SQLiteDBPath string
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is the built store plus its optional cleanup.
type Result struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Open builds the store described by config.
func Open(config Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch config.Type {
	case SQLiteBackend:
		st, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &Result{Store: st, Cleanup: st.Close}, nil
	case MemoryBackend:
		logger.Info("Initialized memory backend")
		return &Result{Store: memory.New(), Cleanup: nil}, nil
	default:
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}
}
