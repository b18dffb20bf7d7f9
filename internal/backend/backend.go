// Package backend selects and opens the ledger store named by
// configuration. Both binaries go through Open so they agree on what
// a backend name means.
package backend

import (
	"fmt"

	"donatrack/internal/config"
	"donatrack/internal/ledger"
	"donatrack/internal/ledger/memory"
	"donatrack/internal/log"
	"donatrack/internal/storage"
)

// Type names a supported ledger backend.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is supported.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Result holds the opened store and a cleanup function to run at
// shutdown. Cleanup may be nil.
type Result struct {
	Store   ledger.Store
	Cleanup func() error
}

// Open creates the store selected by cfg.DataBackend.
func Open(cfg *config.Config, logger *log.Logger) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	logger = logger.WithComponent(log.ComponentBackend)

	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch backendType {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		logger.Info("Initialized memory backend")
		return &Result{Store: memory.New(), Cleanup: nil}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}
