package indexing

import (
	"errors"
	"time"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects refresh activity per index. A nil *Metrics records
// nothing.
type Metrics struct {
	Refreshes       *prometheus.CounterVec
	Scanned         *prometheus.CounterVec
	Reindexed       *prometheus.CounterVec
	Pruned          *prometheus.CounterVec
	Watermark       *prometheus.GaugeVec
	Entries         *prometheus.GaugeVec
	RefreshDuration *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors; see Register.
func NewMetrics() *Metrics {
	return &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickindex",
			Subsystem: "index",
			Name:      "refreshes_total",
			Help:      "Refresh attempts, by whether the index was already current.",
		}, []string{"index", "result"}),
		Scanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickindex",
			Subsystem: "index",
			Name:      "scanned_total",
			Help:      "Components visited by refreshes.",
		}, []string{"index"}),
		Reindexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickindex",
			Subsystem: "index",
			Name:      "reindexed_total",
			Help:      "Entities whose key was recomputed.",
		}, []string{"index"}),
		Pruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickindex",
			Subsystem: "index",
			Name:      "pruned_total",
			Help:      "Entities dropped because their component was removed.",
		}, []string{"index"}),
		Watermark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tickindex",
			Subsystem: "index",
			Name:      "watermark",
			Help:      "Tick through which the index is accurate.",
		}, []string{"index"}),
		Entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tickindex",
			Subsystem: "index",
			Name:      "entries",
			Help:      "Entities currently indexed.",
		}, []string{"index"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tickindex",
			Subsystem: "index",
			Name:      "refresh_duration_seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"index"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	var errs []error
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Refreshes,
		m.Scanned,
		m.Reindexed,
		m.Pruned,
		m.Watermark,
		m.Entries,
		m.RefreshDuration,
	}
}

func (m *Metrics) observeSkip(index string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(index, "skipped").Inc()
}

func (m *Metrics) observeRefresh(index string, stats RefreshStats, watermark domain.Tick, entries int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(index, "scanned").Inc()
	m.Scanned.WithLabelValues(index).Add(float64(stats.Scanned))
	m.Reindexed.WithLabelValues(index).Add(float64(stats.Reindexed))
	m.Pruned.WithLabelValues(index).Add(float64(stats.Pruned))
	m.Watermark.WithLabelValues(index).Set(float64(watermark))
	m.Entries.WithLabelValues(index).Set(float64(entries))
	m.RefreshDuration.WithLabelValues(index).Observe(elapsed.Seconds())
}
