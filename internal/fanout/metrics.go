package fanout

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultDelivered = "delivered"
	resultFailed    = "failed"
	resultDropped   = "dropped"
)

type Metrics struct {
	events   *prometheus.CounterVec
	drops    *prometheus.CounterVec
	duration prometheus.Histogram
	depth    prometheus.Gauge
}

// NewMetrics registers the fanout collectors with reg. A nil reg keeps the
// collectors unregistered, which tests and the CLI rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanout_events_total",
				Help: "Fanout events by outcome",
			},
			[]string{"result"},
		),
		drops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanout_dropped_total",
				Help: "Fanout events dropped before delivery, by reason",
			},
			[]string{"reason"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fanout_delivery_duration_seconds",
				Help:    "Time spent in one transport delivery",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
			},
		),
		depth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fanout_queue_depth",
				Help: "Events waiting in the fanout queue at last enqueue",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.drops, m.duration, m.depth)
	}
	return m
}

func (m *Metrics) Delivered() {
	m.events.WithLabelValues(resultDelivered).Inc()
}

func (m *Metrics) Failed() {
	m.events.WithLabelValues(resultFailed).Inc()
}

func (m *Metrics) Dropped(reason string) {
	m.events.WithLabelValues(resultDropped).Inc()
	m.drops.WithLabelValues(reason).Inc()
}

func (m *Metrics) Queued(depth int) {
	m.depth.Set(float64(depth))
}

func (m *Metrics) Observe(d time.Duration) {
	m.duration.Observe(d.Seconds())
}

// Count returns the counter for one result label.
func (m *Metrics) Count(result string) prometheus.Counter {
	return m.events.WithLabelValues(result)
}
