package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the session's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	coalesced     prometheus.Counter
	waiting       prometheus.Gauge
	logouts       prometheus.Counter
	authenticated prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erpadmin",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erpadmin",
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Refresh network exchanges by result.",
		}, []string{"result"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "erpadmin",
			Subsystem: "session",
			Name:      "refresh_coalesced_total",
			Help:      "Refresh calls whose exchange was shared with other callers.",
		}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "erpadmin",
			Subsystem: "session",
			Name:      "refresh_waiters",
			Help:      "Callers currently waiting on a refresh exchange.",
		}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "erpadmin",
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Session teardowns of any cause.",
		}),
		authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "erpadmin",
			Subsystem: "session",
			Name:      "authenticated",
			Help:      "1 while a credential is held.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.logins, m.refreshes, m.coalesced, m.waiting, m.logouts, m.authenticated)
	}
	return m
}

const (
	resultSuccess    = "success"
	resultError      = "error"
	resultSuperseded = "superseded"
)

func (m *Metrics) login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) coalescedCall() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

func (m *Metrics) waiterIn() {
	if m == nil {
		return
	}
	m.waiting.Inc()
}

func (m *Metrics) waiterOut() {
	if m == nil {
		return
	}
	m.waiting.Dec()
}

func (m *Metrics) teardown() {
	if m == nil {
		return
	}
	m.logouts.Inc()
	m.authenticated.Set(0)
}

func (m *Metrics) setAuthenticated() {
	if m == nil {
		return
	}
	m.authenticated.Set(1)
}
