// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	TransactionsIngested prometheus.Counter
	IngestionErrors      *prometheus.CounterVec

	// Classification metrics
	LegsClassified      *prometheus.CounterVec // by direction
	NonSwapSkipped      prometheus.Counter
	UnknownValueLegs    prometheus.Counter
	MultiLegCollapsed   prometheus.Counter
	DustDeltasDiscarded prometheus.Counter

	// Pricing metrics
	OracleLookups    prometheus.Counter
	OracleFailures   prometheus.Counter
	PriceCacheHits   prometheus.Counter
	PriceCacheMisses prometheus.Counter

	// Aggregation metrics
	SeriesRecomputed         prometheus.Counter
	CyclesComputed           prometheus.Counter
	NegativeBalanceAnomalies prometheus.Counter
	OutOfOrderAnomalies      prometheus.Counter

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulRecompute prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on the default
// Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered on the given
// registerer. Tests pass a fresh registry so parallel instances never
// collide.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "onchain_journal"
	}
	factory := promauto.With(reg)

	return &Metrics{
		TransactionsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_ingested_total",
			Help:      "Number of wallet transactions received from the chain-data source.",
		}),
		IngestionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_errors_total",
			Help:      "Ingestion errors by stage.",
		}, []string{"stage"}),

		LegsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legs_classified_total",
			Help:      "Directional legs emitted by the classifier.",
		}, []string{"direction"}),
		NonSwapSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "non_swap_skipped_total",
			Help:      "Transactions with empty or one-sided delta sets, not classified as swaps.",
		}),
		UnknownValueLegs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_value_legs_total",
			Help:      "Legs emitted without a resolvable USD value.",
		}),
		MultiLegCollapsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "multi_leg_collapsed_total",
			Help:      "Transactions with more than two net deltas collapsed to a single pair.",
		}),
		DustDeltasDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dust_deltas_discarded_total",
			Help:      "Token deltas below the dust epsilon discarded before classification.",
		}),

		OracleLookups: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_lookups_total",
			Help:      "Multi-mint price oracle queries issued.",
		}),
		OracleFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_failures_total",
			Help:      "Oracle queries that failed and degraded to unknown values.",
		}),
		PriceCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_cache_hits_total",
			Help:      "Price lookups served from the TTL cache.",
		}),
		PriceCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_cache_misses_total",
			Help:      "Price lookups that fell through to the oracle.",
		}),

		SeriesRecomputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_recomputed_total",
			Help:      "Per-token cycle series recomputed from full leg history.",
		}),
		CyclesComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_computed_total",
			Help:      "Trade cycles produced across recomputes.",
		}),
		NegativeBalanceAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negative_balance_anomalies_total",
			Help:      "Sell legs that drove a running balance negative (missing upstream data).",
		}),
		OutOfOrderAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "out_of_order_anomalies_total",
			Help:      "Legs delivered out of timestamp order.",
		}),

		LastSuccessfulIngestion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of the last successful ingestion batch.",
		}),
		LastSuccessfulRecompute: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_recompute_timestamp",
			Help:      "Unix timestamp of the last successful cycle recompute.",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
