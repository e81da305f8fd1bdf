package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics ───────────────────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stakingsync",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stakingsync",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stakingsync",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Reconciliation metrics ─────────────────────────────────────────────

var (
	ReconcileCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stakingsync",
		Subsystem: "reconcile",
		Name:      "cycles_total",
		Help:      "Total number of completed reconciliation cycles.",
	})

	ReconcileCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stakingsync",
		Subsystem: "reconcile",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of a full reconciliation cycle.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	ReconcileEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stakingsync",
		Subsystem: "reconcile",
		Name:      "entries_total",
		Help:      "Per-token reconciliation outcomes.",
	}, []string{"token", "status", "stage"})

	ReconcileEntryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stakingsync",
		Subsystem: "reconcile",
		Name:      "entry_duration_seconds",
		Help:      "Duration of a single token reconciliation.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"token"})

	ReconcileLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "stakingsync",
		Subsystem: "reconcile",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last successful reconciliation per token.",
	}, []string{"token"})
)

// ── Business metrics ───────────────────────────────────────────────────

var (
	StakingAPY = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "stakingsync",
		Subsystem: "staking",
		Name:      "apy_percent",
		Help:      "Latest APY read from the staking contract.",
	}, []string{"token"})

	StakingTVL = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "stakingsync",
		Subsystem: "staking",
		Name:      "tvl_tokens",
		Help:      "Latest total staked amount in whole tokens.",
	}, []string{"token"})
)

// ── Cache metrics ──────────────────────────────────────────────────────

var (
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stakingsync",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Redis cache lookups by operation and result.",
	}, []string{"op", "result"})
)
