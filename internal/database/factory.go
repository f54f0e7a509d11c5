package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mixoploidy8031/suprsafe/internal/config"
	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// NewStoreFromConfig creates a Store implementation based on the store
// config type.
func NewStoreFromConfig(cfg config.StoreConfig) (suprsafe.Store, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating store data directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "suprsafe.db"), nil, nil)
	case "memory":
		return NewSQLiteStore(":memory:", nil, nil)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
