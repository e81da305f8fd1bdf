package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	recordColumns = `token_address,
        staking_address,
        display_name,
        project_name,
        chain_name,
        is_stablecoin,
        categories,
        logo_url,
        apy::text,
        tvl::text,
        created_at,
        updated_at`

	// xmax is zero only for a freshly inserted tuple.
	upsertRecordSQL = `INSERT INTO staking_records (
        token_address,
        staking_address,
        display_name,
        project_name,
        chain_name,
        is_stablecoin,
        categories,
        logo_url,
        apy,
        tvl,
        created_at,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11
    )
    ON CONFLICT (token_address) DO UPDATE
    SET
        apy        = EXCLUDED.apy,
        tvl        = EXCLUDED.tvl,
        updated_at = EXCLUDED.updated_at
    RETURNING ` + recordColumns + `, (xmax = 0) AS inserted;`

	listRecordsSQL = `SELECT ` + recordColumns + `
    FROM staking_records
    ORDER BY token_address;`

	getRecordSQL = `SELECT ` + recordColumns + `
    FROM staking_records
    WHERE token_address = $1;`
)

// Postgres persists staking records in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wires a pgx pool into a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Postgres) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Postgres) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Ping checks database connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, postgresMigrationSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Upsert inserts a new record or refreshes apy, tvl and updated_at of an
// existing one in a single statement.
func (s *Postgres) Upsert(ctx context.Context, record StakingRecord) (StakingRecord, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return StakingRecord{}, false, err
	}

	categories := record.Categories
	if categories == nil {
		categories = []string{}
	}

	row := pool.QueryRow(ctx, upsertRecordSQL,
		record.TokenAddress,
		record.StakingAddress,
		record.DisplayName,
		record.ProjectName,
		record.ChainName,
		record.Stablecoin,
		categories,
		record.LogoURL,
		record.APY.String(),
		record.TVL.String(),
		record.UpdatedAt,
	)

	var inserted bool
	stored, err := scanRecord(row, &inserted)
	if err != nil {
		return StakingRecord{}, false, fmt.Errorf("upsert staking record: %w", err)
	}
	return stored, inserted, nil
}

// GetAll lists every record ordered by token address.
func (s *Postgres) GetAll(ctx context.Context) ([]StakingRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecordsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list staking records: %w", queryErr)
	}
	defer rows.Close()

	records := make([]StakingRecord, 0)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// GetByKey fetches one record by token address.
func (s *Postgres) GetByKey(ctx context.Context, tokenAddress string) (StakingRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return StakingRecord{}, err
	}

	rec, err := scanRecord(pool.QueryRow(ctx, getRecordSQL, tokenAddress))
	if errors.Is(err, pgx.ErrNoRows) {
		return StakingRecord{}, ErrNotFound
	}
	if err != nil {
		return StakingRecord{}, fmt.Errorf("get staking record: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row, extra ...any) (StakingRecord, error) {
	var (
		rec       StakingRecord
		apyStr    string
		tvlStr    string
		createdAt time.Time
		updatedAt time.Time
	)

	dest := []any{
		&rec.TokenAddress,
		&rec.StakingAddress,
		&rec.DisplayName,
		&rec.ProjectName,
		&rec.ChainName,
		&rec.Stablecoin,
		&rec.Categories,
		&rec.LogoURL,
		&apyStr,
		&tvlStr,
		&createdAt,
		&updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return StakingRecord{}, err
	}

	var err error
	rec.APY, err = decimal.NewFromString(apyStr)
	if err != nil {
		return StakingRecord{}, fmt.Errorf("parse apy: %w", err)
	}
	rec.TVL, err = decimal.NewFromString(tvlStr)
	if err != nil {
		return StakingRecord{}, fmt.Errorf("parse tvl: %w", err)
	}
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = updatedAt.UTC()
	return rec, nil
}

var _ Store = (*Postgres)(nil)
