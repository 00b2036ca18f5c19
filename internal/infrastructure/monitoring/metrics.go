package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. Every recording method is safe to
// call on a nil receiver so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	RenderDuration *prometheus.HistogramVec
	RenderErrors   *prometheus.CounterVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter

	// Embedded block metrics
	BlocksRendered *prometheus.CounterVec
	BlocksFailed   *prometheus.CounterVec
	StaleWrites    prometheus.Counter

	// Tab metrics
	TabsOpen     prometheus.Gauge
	TabEvictions prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics creates a metrics collector backed by a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lens_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lens_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		RenderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lens_render_duration_seconds",
				Help:    "Content pipeline duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind"},
		),
		RenderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lens_render_errors_total",
				Help: "Total number of failed pipeline runs",
			},
			[]string{"kind"},
		),
		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lens_render_cache_hits_total",
				Help: "Display passes served from a cached fragment",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lens_render_cache_misses_total",
				Help: "Display passes that ran the pipeline",
			},
		),

		BlocksRendered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lens_blocks_rendered_total",
				Help: "Embedded blocks rendered successfully",
			},
			[]string{"block"},
		),
		BlocksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lens_blocks_failed_total",
				Help: "Embedded blocks that rendered an error in place",
			},
			[]string{"block"},
		),
		StaleWrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lens_blocks_stale_writes_total",
				Help: "Block writes rejected because the tree was replaced",
			},
		),

		TabsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lens_tabs_open",
				Help: "Number of open tabs across sessions",
			},
		),
		TabEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lens_tab_evictions_total",
				Help: "Tabs evicted to stay within capacity",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lens_websocket_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lens_websocket_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "lens_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRender records a pipeline run for the given document kind.
func (m *Metrics) RecordRender(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.RenderDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		m.RenderErrors.WithLabelValues(kind).Inc()
	}
}

// RecordCache records whether a display pass reused a cached fragment.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// RecordBlocks records the outcome of a block rendering pass.
func (m *Metrics) RecordBlocks(block string, rendered, failed, stale int) {
	if m == nil {
		return
	}
	m.BlocksRendered.WithLabelValues(block).Add(float64(rendered))
	m.BlocksFailed.WithLabelValues(block).Add(float64(failed))
	m.StaleWrites.Add(float64(stale))
}

// AddTabs adjusts the open tab gauge.
func (m *Metrics) AddTabs(delta int) {
	if m == nil {
		return
	}
	m.TabsOpen.Add(float64(delta))
}

// RecordEviction records an LRU eviction.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.TabEvictions.Inc()
}

// RecordWSConnection adjusts the connection gauge.
func (m *Metrics) RecordWSConnection(delta int) {
	if m == nil {
		return
	}
	m.WSConnections.Add(float64(delta))
}

// RecordWSMessage records a message in the given direction ("in" or "out").
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}
