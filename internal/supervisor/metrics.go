package supervisor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the per-run Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	probesTotal    *prometheus.CounterVec
	launchesTotal  prometheus.Counter
	provisionTotal *prometheus.CounterVec
	teardownsTotal *prometheus.CounterVec
	childExitCode  prometheus.Gauge
	phaseDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mover",
				Subsystem: "daemon",
				Name:      "probes_total",
				Help:      "TCP probes of the daemon address by result",
			},
			[]string{"result"},
		),
		launchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mover",
				Subsystem: "daemon",
				Name:      "launches_total",
				Help:      "Daemon processes spawned by this run",
			},
		),
		provisionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mover",
				Subsystem: "model",
				Name:      "requests_total",
				Help:      "Pull and warm-up requests by step and result",
			},
			[]string{"step", "result"},
		),
		teardownsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mover",
				Subsystem: "daemon",
				Name:      "teardowns_total",
				Help:      "Owned daemon terminations by result",
			},
			[]string{"result"},
		),
		childExitCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mover",
				Subsystem: "child",
				Name:      "exit_code",
				Help:      "Exit code of the downstream CLI",
			},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mover",
				Subsystem: "run",
				Name:      "phase_duration_seconds",
				Help:      "Time spent in each run state",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"state"},
		),
	}
	reg.MustRegister(m.probesTotal, m.launchesTotal, m.provisionTotal, m.teardownsTotal, m.childExitCode, m.phaseDuration)
	return m
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}

func (m *Metrics) observeProbe(ok bool) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(resultLabel(ok)).Inc()
}

func (m *Metrics) observeLaunch() {
	if m == nil {
		return
	}
	m.launchesTotal.Inc()
}

func (m *Metrics) observeProvision(step string, ok bool) {
	if m == nil {
		return
	}
	m.provisionTotal.WithLabelValues(step, resultLabel(ok)).Inc()
}

func (m *Metrics) observeTeardown(ok bool) {
	if m == nil {
		return
	}
	m.teardownsTotal.WithLabelValues(resultLabel(ok)).Inc()
}

func (m *Metrics) observeChildExit(code int) {
	if m == nil {
		return
	}
	m.childExitCode.Set(float64(code))
}

func (m *Metrics) observePhase(s State, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(string(s)).Observe(d.Seconds())
}
