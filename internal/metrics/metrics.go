// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns every collector. Use New with a dedicated registry in tests.
type Metrics struct {
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	transitions          *prometheus.CounterVec
	settlementsGenerated prometheus.Counter
	notifications        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billo_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billo_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billo_settlement_transitions_total",
			Help: "Accepted settlement status changes.",
		}, []string{"from", "to"}),
		settlementsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billo_settlements_generated_total",
			Help: "Settlement rows written by receipt splits.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billo_notifications_total",
			Help: "Notification deliveries by kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.settlementsGenerated,
		m.notifications,
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, code int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// SettlementTransition counts a status change.
func (m *Metrics) SettlementTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// SettlementsGenerated adds n generated rows.
func (m *Metrics) SettlementsGenerated(n int) {
	if m == nil {
		return
	}
	m.settlementsGenerated.Add(float64(n))
}

// Notification counts one delivery attempt. result is "sent", "skipped",
// "dropped" or "failed".
func (m *Metrics) Notification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}
