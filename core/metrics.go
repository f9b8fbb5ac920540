package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type importMetrics struct {
	attempts        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	unparsedLines   prometheus.Counter
	recordsImported *prometheus.CounterVec
	inflight        prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *importMetrics {
	return &importMetrics{
		attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gedcom",
			Name:      "import_attempts_total",
			Help:      "Intents d'importació GEDCOM per resultat.",
		}, []string{"result"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gedcom",
			Name:      "import_duration_seconds",
			Help:      "Durada de cada intent d'importació.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"result"}),
		unparsedLines: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gedcom",
			Name:      "unparsed_lines_total",
			Help:      "Línies GEDCOM que no s'han pogut interpretar.",
		}),
		recordsImported: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gedcom",
			Name:      "records_imported_total",
			Help:      "Registres persistits per tipus.",
		}, []string{"kind"}),
		inflight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "gedcom",
			Name:      "import_jobs_inflight",
			Help:      "Treballs d'importació en execució.",
		}),
	}
})

func getMetrics() *importMetrics {
	return metricsSingleton()
}

// Resultats possibles d'un intent.
const (
	resultSuccess = "success"
	resultRetry   = "retry"
	resultFailed  = "failed"
	resultTimeout = "timeout"
)
