package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Script metrics
	ScriptRuns     *prometheus.CounterVec
	ScriptDuration *prometheus.HistogramVec

	// Binding metrics
	BindingCalls    *prometheus.CounterVec
	BindingDuration *prometheus.HistogramVec

	// Pool metrics
	HostsAvailable prometheus.Gauge
	HostsInUse     prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ScriptRuns        int64   `json:"script_runs"`
	ScriptFailures    int64   `json:"script_failures"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

var (
	durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	sizeBuckets     = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
)

// NewMetrics registers a new metrics collector with reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "andjs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "andjs_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: durationBuckets,
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "andjs_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: sizeBuckets,
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "andjs_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: sizeBuckets,
			},
			[]string{"method", "path"},
		),

		// Script metrics
		ScriptRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "andjs_script_runs_total",
				Help: "Total number of script evaluations by outcome",
			},
			[]string{"status"},
		),
		ScriptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "andjs_script_duration_seconds",
				Help:    "Script evaluation duration in seconds",
				Buckets: durationBuckets,
			},
			[]string{"status"},
		),

		// Binding metrics
		BindingCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "andjs_binding_calls_total",
				Help: "Total number of native calls made by scripts",
			},
			[]string{"capability", "method", "status"},
		),
		BindingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "andjs_binding_duration_seconds",
				Help:    "Native call duration in seconds",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"capability", "method"},
		),

		// Pool metrics
		HostsAvailable: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "andjs_hosts_available",
				Help: "Number of idle script hosts in the pool",
			},
		),
		HostsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "andjs_hosts_in_use",
				Help: "Number of script hosts currently acquired",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "andjs_websocket_connections",
				Help: "Number of active log stream connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "andjs_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "andjs_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// ObserveRun records a script evaluation.
func (m *Metrics) ObserveRun(_, status string, d time.Duration) {
	m.ScriptRuns.WithLabelValues(status).Inc()
	m.ScriptDuration.WithLabelValues(status).Observe(d.Seconds())

	m.mu.Lock()
	m.snapshot.ScriptRuns++
	if status != "ok" {
		m.snapshot.ScriptFailures++
	}
	m.mu.Unlock()
}

// RecordBindingCall records one native call
func (m *Metrics) RecordBindingCall(capability, method, status string, duration time.Duration) {
	m.BindingCalls.WithLabelValues(capability, method, status).Inc()
	m.BindingDuration.WithLabelValues(capability, method).Observe(duration.Seconds())
}

// SetPoolUsage sets the pool gauges.
func (m *Metrics) SetPoolUsage(available, inUse int) {
	m.HostsAvailable.Set(float64(available))
	m.HostsInUse.Set(float64(inUse))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values for the JSON API.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
