package storage

import (
	"context"
	"errors"
	"fmt"

	"staking-sync/internal/config"
)

var (
	// ErrNotFound is returned when no record exists for a token address.
	ErrNotFound = errors.New("storage: record not found")
	// ErrNotConfigured indicates the storage backend was not initialised.
	ErrNotConfigured = errors.New("storage: backend not configured")
)

// RecordReader is the read side used by the query handlers.
type RecordReader interface {
	GetAll(ctx context.Context) ([]StakingRecord, error)
	GetByKey(ctx context.Context, tokenAddress string) (StakingRecord, error)
}

// RecordWriter is the write side used by the reconciler. Upsert creates the
// record on first sight and otherwise updates only apy, tvl and updated_at.
// It reports whether the record was created.
type RecordWriter interface {
	Upsert(ctx context.Context, record StakingRecord) (StakingRecord, bool, error)
}

// Store is a complete persistence backend.
type Store interface {
	RecordReader
	RecordWriter
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close()
}

// Open builds the backend selected by database.driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pool), nil
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLitePath)
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
