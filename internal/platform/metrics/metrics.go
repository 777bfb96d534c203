package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	HTTPLatency          *prometheus.HistogramVec
	DonorsRegistered     prometheus.Counter
	RecipientsRegistered prometheus.Counter
	OrgansRegistered     prometheus.Counter
	OrganTransitions     *prometheus.CounterVec
	TransitionsRejected  *prometheus.CounterVec
	AuthorizationDenied  *prometheus.CounterVec
	CustodyAppended      *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
	EventPublishFailures *prometheus.CounterVec
	EventsDropped        *prometheus.CounterVec
	SinkCircuitState     *prometheus.GaugeVec
	OrgansExpiredBySweep prometheus.Counter
	RequestsRateLimited  *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics against the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer allows tests to use a private registry so repeated construction does not panic.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifeconnect_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DonorsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeconnect_donors_registered_total",
			Help: "Total number of donors registered",
		}),
		RecipientsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeconnect_recipients_registered_total",
			Help: "Total number of recipients registered",
		}),
		OrgansRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeconnect_organs_registered_total",
			Help: "Total number of organs entered into the ledger",
		}),
		OrganTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeconnect_organ_transitions_total",
			Help: "Organ status transitions applied, by target status",
		}, []string{"to"}),
		TransitionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeconnect_organ_transitions_rejected_total",
			Help: "Organ operations rejected, by operation and error code",
		}, []string{"operation", "code"}),
		AuthorizationDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeconnect_authorization_denied_total",
			Help: "Operations refused by the authorization guard",
		}, []string{"operation"}),
		CustodyAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeconnect_custody_events_appended_total",
			Help: "Custody events appended, by kind",
		}, []string{"kind"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeconnect_domain_events_published_total",
			Help: "Domain events delivered to a sink",
		}, []string{"sink"}),
		EventPublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeconnect_domain_event_publish_failures_total",
			Help: "Domain events a sink failed to accept",
		}, []string{"sink"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeconnect_domain_events_dropped_total",
			Help: "Domain events skipped because the sink's circuit breaker was open",
		}, []string{"sink"}),
		SinkCircuitState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lifeconnect_event_sink_circuit_state",
			Help: "Event sink circuit breaker state (0=closed, 1=open)",
		}, []string{"sink"}),
		OrgansExpiredBySweep: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeconnect_organs_expired_by_sweep_total",
			Help: "Organs moved to Expired by the background sweeper",
		}),
		RequestsRateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeconnect_requests_rate_limited_total",
			Help: "API requests refused because the caller exhausted its budget",
		}, []string{"class"}),
	}
}

func (m *Metrics) ObserveHTTPLatency(method, route string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementDonorsRegistered() {
	if m == nil {
		return
	}
	m.DonorsRegistered.Inc()
}

func (m *Metrics) IncrementRecipientsRegistered() {
	if m == nil {
		return
	}
	m.RecipientsRegistered.Inc()
}

func (m *Metrics) IncrementOrgansRegistered() {
	if m == nil {
		return
	}
	m.OrgansRegistered.Inc()
}

func (m *Metrics) IncrementTransition(to string) {
	if m == nil {
		return
	}
	m.OrganTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncrementRejected(operation, code string) {
	if m == nil {
		return
	}
	m.TransitionsRejected.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) IncrementAuthorizationDenied(operation string) {
	if m == nil {
		return
	}
	m.AuthorizationDenied.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementCustodyAppended(kind string) {
	if m == nil {
		return
	}
	m.CustodyAppended.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementEventsPublished(sink string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncrementPublishFailures(sink string) {
	if m == nil {
		return
	}
	m.EventPublishFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncrementEventsDropped(sink string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(sink).Inc()
}

func (m *Metrics) SetSinkCircuitOpen(sink string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.SinkCircuitState.WithLabelValues(sink).Set(v)
}

func (m *Metrics) AddExpiredBySweep(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrgansExpiredBySweep.Add(float64(n))
}

func (m *Metrics) IncrementRateLimited(class string) {
	if m == nil {
		return
	}
	m.RequestsRateLimited.WithLabelValues(class).Inc()
}
