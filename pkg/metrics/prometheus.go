package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	RunsTotal           *prometheus.CounterVec
	RunDuration         prometheus.Histogram
	PairsTotal          *prometheus.CounterVec
	ListingsExtracted   prometheus.Counter
	RecordsPersisted    prometheus.Counter
	RecordsDropped      prometheus.Counter
	PersistRetries      prometheus.Counter
	PriceParseAnomalies prometheus.Counter
	SchedulerTimeouts   prometheus.Counter
}

// NewMetrics creates new prometheus metrics registered on reg.
// A nil reg falls back to the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Crawl runs by outcome",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed crawl runs",
			Buckets:   []float64{10, 30, 60, 120, 180, 240, 300, 600},
		}),
		PairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_total",
			Help:      "Route/date pairs processed by outcome",
		}, []string{"outcome"}),
		ListingsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_extracted_total",
			Help:      "The total number of listing nodes turned into flight records",
		}),
		RecordsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_persisted_total",
			Help:      "The total number of flight records written to the store",
		}),
		RecordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Flight records dropped by the target-carrier filter",
		}),
		PersistRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_retries_total",
			Help:      "Persistence attempts that failed and were retried",
		}),
		PriceParseAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_parse_anomalies_total",
			Help:      "Price fields that could not be parsed",
		}),
		SchedulerTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_timeouts_total",
			Help:      "Runs abandoned after exceeding the maximum duration",
		}),
	}
}
