package llm

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for generative calls. A nil *Metrics records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg (skipped when reg is nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postcraft_generative_calls_total",
				Help: "Generative service calls by class, stage and outcome",
			},
			[]string{"class", "stage", "outcome"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postcraft_generative_attempts_total",
				Help: "Individual provider attempts including retries",
			},
			[]string{"class"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "postcraft_generative_call_duration_seconds",
				Help:    "Generative call duration in seconds, retries included",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"class"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "postcraft_generative_in_flight",
				Help: "Provider attempts currently holding a concurrency slot",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.attempts, m.duration, m.inFlight)
	}
	return m
}

func (m *Metrics) observeCall(class CallClass, stage, outcome string, seconds float64) {
	if m == nil {
		return
	}
	if stage == "" {
		stage = "unknown"
	}
	m.calls.WithLabelValues(string(class), stage, outcome).Inc()
	m.duration.WithLabelValues(string(class)).Observe(seconds)
}

func (m *Metrics) observeAttempt(class CallClass) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(string(class)).Inc()
}

func (m *Metrics) acquire() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) release() {
	if m != nil {
		m.inFlight.Dec()
	}
}
