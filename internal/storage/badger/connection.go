// Package badger is the default PersistencePort implementation, storing
// scheduler jobs, executions, and job definitions in an embedded Badger
// database via badgerhold.
package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/netopscore/internal/common"
)

// DB wraps the badgerhold store shared by PersistencePort.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

func NewDB(logger arbor.ILogger, cfg common.BadgerConfig) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}

	logger.Debug().Str("path", cfg.Path).Msg("opening badger database")

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &DB{store: store, logger: logger}, nil
}

func (d *DB) Store() *badgerhold.Store {
	return d.store
}

func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
