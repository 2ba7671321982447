package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Set holds the Prometheus instruments for one consumer process. Each
// process gets its own registry so tests can build as many Sets as they
// like without collector name collisions.
type Set struct {
	Registry *prometheus.Registry

	RecordsTotal       prometheus.Counter
	RecordsSkipped     prometheus.Counter
	DecodeFailures     prometheus.Counter
	EffectsApplied     prometheus.Counter
	EffectFailures     prometheus.Counter
	SideEffectDuration prometheus.Histogram
}

// NewSet builds the instrument set for a consumer. The consumer name
// ("notifier" or "indexer") becomes a constant label so dashboards can
// tell the two processes apart.
func NewSet(consumer string) *Set {
	labels := prometheus.Labels{"consumer": consumer}

	s := &Set{
		Registry: prometheus.NewRegistry(),
		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cdc_records_total",
			Help:        "Change records pulled from the log.",
			ConstLabels: labels,
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cdc_records_skipped_total",
			Help:        "Records filtered out before any side effect.",
			ConstLabels: labels,
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cdc_decode_failures_total",
			Help:        "Records dropped because the envelope could not be decoded.",
			ConstLabels: labels,
		}),
		EffectsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cdc_side_effects_total",
			Help:        "Side effects applied (emails sent / documents upserted).",
			ConstLabels: labels,
		}),
		EffectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cdc_side_effect_failures_total",
			Help:        "Side effects that failed and were left to redelivery or dropped.",
			ConstLabels: labels,
		}),
		SideEffectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "cdc_side_effect_duration_seconds",
			Help:        "Latency of the outbound side-effect call.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}

	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		s.RecordsTotal,
		s.RecordsSkipped,
		s.DecodeFailures,
		s.EffectsApplied,
		s.EffectFailures,
		s.SideEffectDuration,
	)

	return s
}
