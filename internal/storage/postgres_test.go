package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"staking-sync/internal/config"
)

// testPostgres connects to STAKINGSYNC_TEST_DSN and empties the table. It
// returns nil when the variable is unset.
func testPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("STAKINGSYNC_TEST_DSN")
	if dsn == "" {
		return nil
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 25})
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	store := NewPostgres(pool)
	t.Cleanup(store.Close)

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE staking_records`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func TestPostgresUpsertReportsCreation(t *testing.T) {
	store := testPostgres(t)
	if store == nil {
		t.Skip("STAKINGSYNC_TEST_DSN not set")
	}
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := newRecord("0xAA", 5, "0.000000000001", first)
	rec.Categories = nil

	created, isNew, err := store.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !isNew {
		t.Fatal("insert should report creation")
	}
	if !created.CreatedAt.Equal(first) || !created.UpdatedAt.Equal(first) {
		t.Fatalf("timestamps = %v/%v, want both %v", created.CreatedAt, created.UpdatedAt, first)
	}
	if len(created.Categories) != 0 {
		t.Fatalf("categories = %#v, want empty", created.Categories)
	}
	if created.TVL.String() != "0.000000000001" {
		t.Fatalf("tvl = %s, want exact decimal", created.TVL)
	}

	_, isNew, err = store.Upsert(ctx, newRecord("0xAA", 6, "2", first.Add(time.Hour)))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if isNew {
		t.Fatal("conflict update should not report creation")
	}

	got, err := store.GetByKey(ctx, "0xAA")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if !got.CreatedAt.Equal(first) || !got.UpdatedAt.Equal(first.Add(time.Hour)) {
		t.Fatalf("timestamps = %v/%v", got.CreatedAt, got.UpdatedAt)
	}
}
