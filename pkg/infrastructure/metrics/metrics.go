package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the pipeline's run metrics. A nil *Registry is valid and
// records nothing.
type Registry struct {
	reg                *prometheus.Registry
	SourceRows         *prometheus.CounterVec
	ReconciledProducts prometheus.Gauge
	UnmatchedProducts  prometheus.Gauge
	ProductsToOrder    prometheus.Gauge
	OverridesApplied   prometheus.Gauge
	StaleOverrides     prometheus.Gauge
	DataGaps           *prometheus.CounterVec
	RunFailures        *prometheus.CounterVec
	RunDurationSec     prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	sourceRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medorder_source_rows_total",
		Help: "Rows read per source table.",
	}, []string{"source"})
	reconciled := prometheus.NewGauge(prometheus.GaugeOpts{Name: "medorder_reconciled_products"})
	unmatched := prometheus.NewGauge(prometheus.GaugeOpts{Name: "medorder_unmatched_products"})
	toOrder := prometheus.NewGauge(prometheus.GaugeOpts{Name: "medorder_products_to_order"})
	overrides := prometheus.NewGauge(prometheus.GaugeOpts{Name: "medorder_overrides_applied"})
	stale := prometheus.NewGauge(prometheus.GaugeOpts{Name: "medorder_stale_overrides"})
	gaps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medorder_data_gaps_total",
		Help: "Formula inputs that were null and counted as zero.",
	}, []string{"gap"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medorder_run_failures_total",
	}, []string{"reason"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "medorder_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(sourceRows, reconciled, unmatched, toOrder, overrides, stale, gaps, failures, duration)
	return &Registry{
		reg:                r,
		SourceRows:         sourceRows,
		ReconciledProducts: reconciled,
		UnmatchedProducts:  unmatched,
		ProductsToOrder:    toOrder,
		OverridesApplied:   overrides,
		StaleOverrides:     stale,
		DataGaps:           gaps,
		RunFailures:        failures,
		RunDurationSec:     duration,
	}
}

// AddSourceRows counts rows loaded from source
func (r *Registry) AddSourceRows(source string, n int) {
	if r == nil {
		return
	}
	r.SourceRows.WithLabelValues(source).Add(float64(n))
}

// AddDataGap counts one defaulted formula input
func (r *Registry) AddDataGap(gap string) {
	if r == nil {
		return
	}
	r.DataGaps.WithLabelValues(gap).Inc()
}

// RecordFailure counts a failed run by reason
func (r *Registry) RecordFailure(reason string) {
	if r == nil {
		return
	}
	r.RunFailures.WithLabelValues(reason).Inc()
}

// RecordRun sets the per-run gauges and observes the duration
func (r *Registry) RecordRun(reconciled, unmatched, toOrder, overrides, stale int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.ReconciledProducts.Set(float64(reconciled))
	r.UnmatchedProducts.Set(float64(unmatched))
	r.ProductsToOrder.Set(float64(toOrder))
	r.OverridesApplied.Set(float64(overrides))
	r.StaleOverrides.Set(float64(stale))
	r.RunDurationSec.Observe(elapsed.Seconds())
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
