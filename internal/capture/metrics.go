package capture

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the capture pipeline. A nil *Metrics is valid and
// records nothing, which keeps tests and the bare CLI path quiet.
type Metrics struct {
	ticksProcessed prometheus.Counter
	ticksDropped   prometheus.Counter
	tickDuration   prometheus.Histogram
	captures       *prometheus.CounterVec
	gateState      prometheus.Gauge
}

// NewMetrics registers the capture metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eyescreen",
			Subsystem: "capture",
			Name:      "ticks_processed_total",
			Help:      "Frame-processing ticks completed.",
		}),
		ticksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eyescreen",
			Subsystem: "capture",
			Name:      "ticks_dropped_total",
			Help:      "Ticks skipped because the previous one was still running.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eyescreen",
			Subsystem: "capture",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one full tick: grab, analyze, detect, gate.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eyescreen",
			Subsystem: "capture",
			Name:      "captures_total",
			Help:      "Emitted capture artifacts by provenance.",
		}, []string{"provenance"}),
		gateState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eyescreen",
			Subsystem: "capture",
			Name:      "gate_state",
			Help:      "Current gate state as its enum value.",
		}),
	}

	reg.MustRegister(m.ticksProcessed, m.ticksDropped, m.tickDuration, m.captures, m.gateState)
	return m
}

func (m *Metrics) observeTick(d time.Duration, dropped int) {
	if m == nil {
		return
	}
	m.ticksProcessed.Inc()
	m.tickDuration.Observe(d.Seconds())
	if dropped > 0 {
		m.ticksDropped.Add(float64(dropped))
	}
}

func (m *Metrics) observeState(s State) {
	if m == nil {
		return
	}
	m.gateState.Set(float64(s))
}

func (m *Metrics) observeCapture(p Provenance) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(string(p)).Inc()
}
