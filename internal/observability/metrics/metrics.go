package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics exposes counters/histograms for CSV import runs.
type ImportMetrics struct {
	rowsTotal   *prometheus.CounterVec
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	m := &ImportMetrics{
		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinica",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Total rows processed by import runs",
		}, []string{"entity", "outcome"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinica",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total completed import runs",
		}, []string{"entity"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinica",
			Subsystem: "import",
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete import runs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.rowsTotal, m.runsTotal, m.runDuration)
	return m
}

func (m *ImportMetrics) ObserveRow(entity string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.rowsTotal.WithLabelValues(entity, outcome).Inc()
}

func (m *ImportMetrics) ObserveRun(entity string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(entity).Inc()
	m.runDuration.WithLabelValues(entity).Observe(elapsed.Seconds())
}
