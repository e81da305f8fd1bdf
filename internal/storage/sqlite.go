package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/shopspring/decimal"
)

const (
	sqliteColumns = `token_address, staking_address, display_name, project_name, chain_name,
        is_stablecoin, categories, logo_url, apy, tvl, created_at, updated_at`

	sqliteInsertSQL = `INSERT INTO staking_records (` + sqliteColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqliteUpdateSQL = `UPDATE staking_records SET apy = ?, tvl = ?, updated_at = ? WHERE token_address = ?`

	sqliteGetSQL  = `SELECT ` + sqliteColumns + ` FROM staking_records WHERE token_address = ?`
	sqliteListSQL = `SELECT ` + sqliteColumns + ` FROM staking_records ORDER BY token_address`
)

// SQLite persists staking records in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("database.sqlite_path is required for the sqlite driver")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers, which makes the read-then-write
	// upsert transaction atomic per key.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	s := &SQLite{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database handle.
func (s *SQLite) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	return s.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigrationSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Upsert creates or refreshes a record inside one transaction.
func (s *SQLite) Upsert(ctx context.Context, record StakingRecord) (StakingRecord, bool, error) {
	if s == nil || s.db == nil {
		return StakingRecord{}, false, ErrNotConfigured
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StakingRecord{}, false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := scanSQLiteRecord(tx.QueryRowContext(ctx, sqliteGetSQL, record.TokenAddress))
	var current *StakingRecord
	switch {
	case err == nil:
		current = &existing
	case errors.Is(err, sql.ErrNoRows):
	default:
		return StakingRecord{}, false, fmt.Errorf("load staking record: %w", err)
	}

	stored := merge(current, record)
	if current == nil {
		categories, err := json.Marshal(nonNil(stored.Categories))
		if err != nil {
			return StakingRecord{}, false, fmt.Errorf("encode categories: %w", err)
		}
		_, err = tx.ExecContext(ctx, sqliteInsertSQL,
			stored.TokenAddress,
			stored.StakingAddress,
			stored.DisplayName,
			stored.ProjectName,
			stored.ChainName,
			stored.Stablecoin,
			string(categories),
			stored.LogoURL,
			stored.APY.String(),
			stored.TVL.String(),
			formatTime(stored.CreatedAt),
			formatTime(stored.UpdatedAt),
		)
		if err != nil {
			return StakingRecord{}, false, fmt.Errorf("insert staking record: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx, sqliteUpdateSQL,
			stored.APY.String(),
			stored.TVL.String(),
			formatTime(stored.UpdatedAt),
			stored.TokenAddress,
		)
		if err != nil {
			return StakingRecord{}, false, fmt.Errorf("update staking record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return StakingRecord{}, false, fmt.Errorf("commit upsert: %w", err)
	}
	return stored, current == nil, nil
}

// GetAll lists every record ordered by token address.
func (s *SQLite) GetAll(ctx context.Context) ([]StakingRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}

	rows, err := s.db.QueryContext(ctx, sqliteListSQL)
	if err != nil {
		return nil, fmt.Errorf("list staking records: %w", err)
	}
	defer rows.Close()

	records := make([]StakingRecord, 0)
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staking records: %w", err)
	}
	return records, nil
}

// GetByKey fetches one record by token address.
func (s *SQLite) GetByKey(ctx context.Context, tokenAddress string) (StakingRecord, error) {
	if s == nil || s.db == nil {
		return StakingRecord{}, ErrNotConfigured
	}

	rec, err := scanSQLiteRecord(s.db.QueryRowContext(ctx, sqliteGetSQL, tokenAddress))
	if errors.Is(err, sql.ErrNoRows) {
		return StakingRecord{}, ErrNotFound
	}
	if err != nil {
		return StakingRecord{}, fmt.Errorf("get staking record: %w", err)
	}
	return rec, nil
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row sqliteScanner) (StakingRecord, error) {
	var (
		rec        StakingRecord
		categories string
		apyStr     string
		tvlStr     string
		createdAt  string
		updatedAt  string
	)

	if err := row.Scan(
		&rec.TokenAddress,
		&rec.StakingAddress,
		&rec.DisplayName,
		&rec.ProjectName,
		&rec.ChainName,
		&rec.Stablecoin,
		&categories,
		&rec.LogoURL,
		&apyStr,
		&tvlStr,
		&createdAt,
		&updatedAt,
	); err != nil {
		return StakingRecord{}, err
	}

	if err := json.Unmarshal([]byte(categories), &rec.Categories); err != nil {
		return StakingRecord{}, fmt.Errorf("parse categories: %w", err)
	}

	var err error
	if rec.APY, err = decimal.NewFromString(apyStr); err != nil {
		return StakingRecord{}, fmt.Errorf("parse apy: %w", err)
	}
	if rec.TVL, err = decimal.NewFromString(tvlStr); err != nil {
		return StakingRecord{}, fmt.Errorf("parse tvl: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return StakingRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return StakingRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

var _ Store = (*SQLite)(nil)
