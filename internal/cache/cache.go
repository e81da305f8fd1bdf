// Package cache puts a Redis read-through layer in front of a storage.Store.
// Redis is advisory: any Redis error falls through to the backing store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"staking-sync/internal/metrics"
	"staking-sync/internal/storage"
)

var errStaleFill = errors.New("cache: backend read predates latest write")

// Options tune the cached store.
type Options struct {
	TTL    time.Duration
	Prefix string
}

// Store caches GetAll and GetByKey results and invalidates them on Upsert.
type Store struct {
	storage.Store
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, redisURL, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if password != "" {
		opts.Password = password
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// New wraps backend with a Redis cache.
func New(backend storage.Store, rdb *redis.Client, logger zerolog.Logger, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Prefix == "" {
		opts.Prefix = "stakingsync"
	}
	return &Store{
		Store:  backend,
		rdb:    rdb,
		ttl:    opts.TTL,
		prefix: opts.Prefix,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Close closes the Redis client and the backing store.
func (s *Store) Close() {
	_ = s.rdb.Close()
	s.Store.Close()
}

func (s *Store) allKey() string {
	return s.prefix + ":staking:all"
}

func (s *Store) genKey() string {
	return s.prefix + ":staking:generation"
}

func (s *Store) recordKey(tokenAddress string) string {
	return s.prefix + ":staking:" + tokenAddress
}

// GetAll serves the full listing from Redis when present.
func (s *Store) GetAll(ctx context.Context) ([]storage.StakingRecord, error) {
	var cached []storage.StakingRecord
	if s.get(ctx, "get_all", s.allKey(), &cached) {
		return cached, nil
	}

	gen, genOK := s.generation(ctx)
	records, err := s.Store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if genOK {
		s.fill(ctx, gen, s.allKey(), records)
	}
	return records, nil
}

// GetByKey serves a single record from Redis when present. Misses in the
// backing store are not cached.
func (s *Store) GetByKey(ctx context.Context, tokenAddress string) (storage.StakingRecord, error) {
	var cached storage.StakingRecord
	if s.get(ctx, "get_by_key", s.recordKey(tokenAddress), &cached) {
		return cached, nil
	}

	gen, genOK := s.generation(ctx)
	rec, err := s.Store.GetByKey(ctx, tokenAddress)
	if err != nil {
		return storage.StakingRecord{}, err
	}
	if genOK {
		s.fill(ctx, gen, s.recordKey(tokenAddress), rec)
	}
	return rec, nil
}

// Upsert writes through, bumps the generation and drops the affected keys.
// A fill that read the backend before the bump is rejected by fill.
func (s *Store) Upsert(ctx context.Context, record storage.StakingRecord) (storage.StakingRecord, bool, error) {
	stored, created, err := s.Store.Upsert(ctx, record)
	if err != nil {
		return storage.StakingRecord{}, false, err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, s.genKey())
		pipe.Del(ctx, s.recordKey(record.TokenAddress), s.allKey())
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("token_address", record.TokenAddress).Msg("cache invalidation failed")
	}
	return stored, created, nil
}

func (s *Store) generation(ctx context.Context) (int64, bool) {
	gen, err := s.rdb.Get(ctx, s.genKey()).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		s.logger.Warn().Err(err).Msg("cache generation unreadable")
		return 0, false
	}
	return gen, true
}

// fill stores value only if no Upsert happened since gen was read.
func (s *Store) fill(ctx context.Context, gen int64, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, s.genKey()).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}, s.genKey())

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		metrics.CacheRequestsTotal.WithLabelValues("fill", "stale").Inc()
	default:
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *Store) get(ctx context.Context, op, key string, dest any) bool {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheRequestsTotal.WithLabelValues(op, "miss").Inc()
		return false
	case err != nil:
		metrics.CacheRequestsTotal.WithLabelValues(op, "error").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues(op, "error").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry undecodable")
		return false
	}
	metrics.CacheRequestsTotal.WithLabelValues(op, "hit").Inc()
	return true
}

var _ storage.Store = (*Store)(nil)
