package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector exposes a runtime's Statistics as prometheus metrics. It is
// optional; register it with any prometheus.Registerer:
//
//	prometheus.MustRegister(realtime.NewStatsCollector(rt))
type StatsCollector struct {
	stats func() (Statistics, error)

	processed   *prometheus.Desc
	unhandled   *prometheus.Desc
	transitions *prometheus.Desc
	depth       *prometheus.Desc
	maxDepth    *prometheus.Desc
}

// NewStatsCollector builds a collector for rt, labeled with the runtime's
// instance id.
func NewStatsCollector[C any](rt *Runtime[C]) *StatsCollector {
	labels := prometheus.Labels{"runtime": rt.ID()}
	return &StatsCollector{
		stats: rt.Stats,
		processed: prometheus.NewDesc("hsm_events_processed_total",
			"Events entered into the state machine.", nil, labels),
		unhandled: prometheus.NewDesc("hsm_events_unhandled_total",
			"Dispatched events no state handled.", nil, labels),
		transitions: prometheus.NewDesc("hsm_transitions_total",
			"External transitions performed, every hop included.", nil, labels),
		depth: prometheus.NewDesc("hsm_queue_depth",
			"Event queue depth at the last sample.", nil, labels),
		maxDepth: prometheus.NewDesc("hsm_queue_depth_max",
			"Highest event queue depth ever sampled.", nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.processed
	ch <- c.unhandled
	ch <- c.transitions
	ch <- c.depth
	ch <- c.maxDepth
}

// Collect implements prometheus.Collector. A closed runtime reports nothing.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s, err := c.stats()
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.processed, prometheus.CounterValue, float64(s.EventsProcessed))
	ch <- prometheus.MustNewConstMetric(c.unhandled, prometheus.CounterValue, float64(s.EventsUnhandled))
	ch <- prometheus.MustNewConstMetric(c.transitions, prometheus.CounterValue, float64(s.Transitions))
	ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(s.QueueDepth))
	ch <- prometheus.MustNewConstMetric(c.maxDepth, prometheus.GaugeValue, float64(s.MaxQueueDepth))
}
