package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hls_downloader"

// Metrics are the engine counters exported on /metrics.
type Metrics struct {
	segmentsFetched prometheus.Counter
	segmentsFailed  prometheus.Counter
	bytesDownloaded prometheus.Counter
	activeTasks     prometheus.Gauge
	taskOutcomes    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		segmentsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_fetched_total",
			Help:      "Segments written to disk.",
		}),
		segmentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_failed_total",
			Help:      "Segment fetch attempts that ended in failed.",
		}),
		bytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_downloaded_total",
			Help:      "Segment bytes written to disk.",
		}),
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tasks",
			Help:      "Task workers currently running.",
		}),
		taskOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_outcomes_total",
			Help:      "Task worker runs by resulting status.",
		}, []string{"status"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.segmentsFetched,
		m.segmentsFailed,
		m.bytesDownloaded,
		m.activeTasks,
		m.taskOutcomes,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) SegmentFetched(bytes int64) {
	m.segmentsFetched.Inc()
	if bytes > 0 {
		m.bytesDownloaded.Add(float64(bytes))
	}
}

func (m *Metrics) SegmentFailed() {
	m.segmentsFailed.Inc()
}

func (m *Metrics) TaskStarted() {
	m.activeTasks.Inc()
}

func (m *Metrics) TaskFinished(status string) {
	m.activeTasks.Dec()
	m.taskOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
