// Package reconciler reads staking contract state for every registry entry
// and merges it into the store. Entries are processed independently: a
// failure for one token is recorded in the report and never aborts the
// others.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"staking-sync/internal/alerting"
	"staking-sync/internal/fetcher"
	"staking-sync/internal/metrics"
	"staking-sync/internal/registry"
	"staking-sync/internal/storage"
)

// Status is the outcome of one entry.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Stage names where an entry failed.
const (
	StageChain = "chain"
	StageStore = "store"
)

// Result is the outcome of reconciling one registry entry.
type Result struct {
	TokenKey     string
	TokenAddress string
	Status       Status
	Stage        string
	Created      bool
	APY          decimal.Decimal
	TVL          decimal.Decimal
	Err          error
}

// Report summarises a reconciliation cycle.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Succeeded counts entries that were written.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusOK {
			n++
		}
	}
	return n
}

// Failed counts entries that were skipped.
func (r Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Options tune the reconciler.
type Options struct {
	// EntryTimeout bounds a single entry; zero leaves it to the caller's context.
	EntryTimeout time.Duration
	Notifier     alerting.Notifier
	Environment  string
	Now          func() time.Time
}

// Reconciler runs reconciliation cycles over an immutable registry.
type Reconciler struct {
	registry *registry.Registry
	reader   fetcher.StakingReader
	store    storage.RecordWriter
	logger   zerolog.Logger
	opts     Options
}

// New wires a reconciler. The registry is captured by reference and must not
// change for the lifetime of the process.
func New(reg *registry.Registry, reader fetcher.StakingReader, store storage.RecordWriter, logger zerolog.Logger, opts Options) *Reconciler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{
		registry: reg,
		reader:   reader,
		store:    store,
		logger:   logger.With().Str("component", "reconciler").Logger(),
		opts:     opts,
	}
}

// ErrUnknownToken is returned by ReconcileKeys for a key not in the registry.
var ErrUnknownToken = errors.New("reconciler: unknown token")

// ReconcileAll reconciles every registry entry concurrently and returns once
// each entry has either been written or recorded as failed.
func (r *Reconciler) ReconcileAll(ctx context.Context) Report {
	return r.run(ctx, r.registry.Entries())
}

// ReconcileKeys runs a cycle over the named registry entries only. Unknown
// keys are rejected before anything is read.
func (r *Reconciler) ReconcileKeys(ctx context.Context, keys []string) (Report, error) {
	entries := make([]registry.Entry, 0, len(keys))
	for _, key := range keys {
		entry, ok := r.registry.Lookup(key)
		if !ok {
			return Report{}, fmt.Errorf("%w: %s", ErrUnknownToken, key)
		}
		entries = append(entries, entry)
	}
	return r.run(ctx, entries), nil
}

func (r *Reconciler) run(ctx context.Context, entries []registry.Entry) Report {
	report := Report{
		StartedAt: r.opts.Now().UTC(),
		Results:   make([]Result, len(entries)),
	}

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry registry.Entry) {
			defer wg.Done()
			report.Results[i] = r.ReconcileOne(ctx, entry)
		}(i, entry)
	}
	wg.Wait()

	report.FinishedAt = r.opts.Now().UTC()
	metrics.ReconcileCyclesTotal.Inc()
	metrics.ReconcileCycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	r.logger.Info().
		Int("entries", len(report.Results)).
		Int("succeeded", report.Succeeded()).
		Int("failed", report.Failed()).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("reconciliation cycle complete")

	r.notifyFailures(ctx, report)
	return report
}

// ReconcileOne reads the entry's staking contract and upserts the result.
// Failures are logged and returned in the Result, never as a panic.
func (r *Reconciler) ReconcileOne(ctx context.Context, entry registry.Entry) (res Result) {
	start := time.Now()
	res = Result{TokenKey: entry.Key, TokenAddress: entry.TokenAddress}
	logger := r.logger.With().
		Str("token", entry.Key).
		Str("token_address", entry.TokenAddress).
		Str("staking_address", entry.StakingAddress).
		Logger()

	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("panic: %v", p)
			logger.Error().Err(res.Err).Str("stage", res.Stage).Msg("reconciliation panicked")
		}
		metrics.ReconcileEntryDuration.WithLabelValues(entry.Key).Observe(time.Since(start).Seconds())
		metrics.ReconcileEntriesTotal.WithLabelValues(entry.Key, string(res.Status), res.Stage).Inc()
	}()

	if r.opts.EntryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.EntryTimeout)
		defer cancel()
	}

	res.Stage = StageChain
	snap, err := r.reader.ReadStakingSnapshot(ctx, entry.StakingAddress)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		logger.Error().Err(err).Msg("failed to read staking contract")
		return res
	}

	apy, tvl, err := Normalize(snap, entry.Decimals)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		logger.Error().Err(err).Msg("failed to normalise staking snapshot")
		return res
	}
	res.APY, res.TVL = apy, tvl

	res.Stage = StageStore
	record := storage.StakingRecord{
		TokenAddress:   entry.TokenAddress,
		StakingAddress: entry.StakingAddress,
		DisplayName:    entry.DisplayName,
		ProjectName:    entry.ProjectName,
		ChainName:      entry.ChainName,
		Stablecoin:     entry.Stablecoin,
		Categories:     entry.Categories,
		LogoURL:        entry.LogoURL,
		APY:            apy,
		TVL:            tvl,
		UpdatedAt:      r.opts.Now().UTC(),
	}
	_, created, err := r.store.Upsert(ctx, record)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		logger.Error().Err(err).Msg("failed to upsert staking record")
		return res
	}

	res.Status, res.Stage, res.Created = StatusOK, "", created
	metrics.ReconcileLastSuccess.WithLabelValues(entry.Key).SetToCurrentTime()
	metrics.StakingAPY.WithLabelValues(entry.Key).Set(apy.InexactFloat64())
	metrics.StakingTVL.WithLabelValues(entry.Key).Set(tvl.InexactFloat64())

	logger.Info().
		Str("apy", apy.String()).
		Str("tvl", tvl.String()).
		Bool("created", created).
		Msg("staking record reconciled")
	return res
}

// Normalize converts raw contract values to decimal units. The APY is an
// integer percentage already; the staked amount is scaled by the asset's
// declared decimals.
func Normalize(snap fetcher.Snapshot, decimals int32) (apy, tvl decimal.Decimal, err error) {
	if snap.APYRaw == nil || snap.TotalStakedRaw == nil {
		return decimal.Decimal{}, decimal.Decimal{}, errors.New("incomplete staking snapshot")
	}
	if decimals < 0 {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("negative decimals %d", decimals)
	}
	apy = decimal.NewFromBigInt(snap.APYRaw, 0)
	tvl = decimal.NewFromBigInt(snap.TotalStakedRaw, -decimals)
	return apy, tvl, nil
}

func (r *Reconciler) notifyFailures(ctx context.Context, report Report) {
	if r.opts.Notifier == nil || report.Failed() == 0 {
		return
	}

	note := alerting.Notification{
		Environment: r.opts.Environment,
		StartedAt:   report.StartedAt,
		Total:       len(report.Results),
	}
	for _, res := range report.Results {
		if res.Status != StatusFailed {
			continue
		}
		note.Failed = append(note.Failed, alerting.FailedEntry{
			TokenKey: res.TokenKey,
			Stage:    res.Stage,
			Error:    errString(res.Err),
		})
	}

	if err := r.opts.Notifier.Notify(ctx, note); err != nil {
		r.logger.Error().Err(err).Msg("failed to dispatch failure notification")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
