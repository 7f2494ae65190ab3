package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for LeadWire
type Metrics struct {
	// Realtime gateway
	WSConnectionsTotal  prometheus.Counter
	WSConnectionsActive prometheus.Gauge
	SubscriptionsActive prometheus.Gauge
	MulticastsTotal     *prometheus.CounterVec
	MulticastDropsTotal prometheus.Counter

	// Campaign lifecycle
	CampaignTransitionsTotal *prometheus.CounterVec
	LeadsImportedTotal       prometheus.Counter
	LeadsEnrolledTotal       prometheus.Counter

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	JournalUsedBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		WSConnectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadwire_ws_connections_total",
				Help: "Total number of accepted websocket connections",
			},
		),
		WSConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadwire_ws_connections_active",
				Help: "Number of currently open websocket connections",
			},
		),
		SubscriptionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadwire_ws_subscriptions_active",
				Help: "Number of live topic subscriptions",
			},
		),
		MulticastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadwire_multicasts_total",
				Help: "Total number of events multicast to topics",
			},
			[]string{"event"},
		),
		MulticastDropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadwire_multicast_drops_total",
				Help: "Total number of frames dropped on slow or dead connections",
			},
		),
		CampaignTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadwire_campaign_transitions_total",
				Help: "Total number of campaign status transitions",
			},
			[]string{"to"},
		),
		LeadsImportedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadwire_leads_imported_total",
				Help: "Total number of leads created through imports",
			},
		),
		LeadsEnrolledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadwire_leads_enrolled_total",
				Help: "Total number of campaign enrollments",
			},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadwire_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadwire_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadwire_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),
		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadwire_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadwire_goroutines",
				Help: "Number of active goroutines",
			},
		),
		JournalUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadwire_journal_used_bytes",
				Help: "Activity journal file size in bytes",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.WSConnectionsTotal,
		m.WSConnectionsActive,
		m.SubscriptionsActive,
		m.MulticastsTotal,
		m.MulticastDropsTotal,
		m.CampaignTransitionsTotal,
		m.LeadsImportedTotal,
		m.LeadsEnrolledTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
		m.JournalUsedBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncMulticast increments the multicast counter for an event
func IncMulticast(event string) {
	m := Global()
	if m != nil {
		m.MulticastsTotal.WithLabelValues(event).Inc()
	}
}

// IncMulticastDrop increments the dropped frame counter
func IncMulticastDrop() {
	m := Global()
	if m != nil {
		m.MulticastDropsTotal.Inc()
	}
}

// IncCampaignTransition increments the transition counter
func IncCampaignTransition(to string) {
	m := Global()
	if m != nil {
		m.CampaignTransitionsTotal.WithLabelValues(to).Inc()
	}
}

// AddLeadsImported adds to the imported lead counter
func AddLeadsImported(n int) {
	m := Global()
	if m != nil {
		m.LeadsImportedTotal.Add(float64(n))
	}
}

// AddLeadsEnrolled adds to the enrollment counter
func AddLeadsEnrolled(n int) {
	m := Global()
	if m != nil {
		m.LeadsEnrolledTotal.Add(float64(n))
	}
}

// ConnOpened records an accepted websocket connection
func ConnOpened() {
	m := Global()
	if m != nil {
		m.WSConnectionsTotal.Inc()
		m.WSConnectionsActive.Inc()
	}
}

// ConnClosed records a closed websocket connection
func ConnClosed() {
	m := Global()
	if m != nil {
		m.WSConnectionsActive.Dec()
	}
}

// SetSubscriptions sets the live subscription gauge
func SetSubscriptions(n int) {
	m := Global()
	if m != nil {
		m.SubscriptionsActive.Set(float64(n))
	}
}

// IncAPIErrors increments the API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
