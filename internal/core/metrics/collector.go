// Package metrics exposes the bridge's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "govee"

// Collector bundles every Prometheus metric the bridge records.
type Collector struct {
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec

	pollCyclesTotal   *prometheus.CounterVec
	pollCycleDuration prometheus.Histogram
	devicesTracked    prometheus.Gauge

	commandsTotal   *prometheus.CounterVec
	overridesActive prometheus.Gauge

	discrepanciesTotal prometheus.Counter

	websocketClients prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector registers the bridge's metrics with the default registerer.
func NewCollector() *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer)
}

// NewCollectorWith registers the metrics with a specific registerer. Tests
// pass a fresh registry so collectors never collide.
func NewCollectorWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		apiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Outbound Govee API calls by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		apiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Outbound Govee API call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		pollCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_cycles_total",
				Help:      "Completed poll cycles by result",
			},
			[]string{"result"},
		),
		pollCycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_cycle_duration_seconds",
				Help:      "Duration of one full list+refresh pass",
				Buckets:   prometheus.DefBuckets,
			},
		),
		devicesTracked: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "devices_tracked",
				Help:      "Devices currently in the state cache",
			},
		),
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Dispatched commands by attribute and result",
			},
			[]string{"attribute", "result"},
		),
		overridesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "overrides_active",
				Help:      "Unexpired optimistic overrides",
			},
		),
		discrepanciesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_discrepancies_total",
				Help:      "Optimistic overrides that expired unconfirmed",
			},
		),
		websocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_clients",
				Help:      "Connected WebSocket clients",
			},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Inbound HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Inbound HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordAPIRequest records one outbound provider call.
func (c *Collector) RecordAPIRequest(endpoint, result string, duration time.Duration) {
	c.apiRequestsTotal.WithLabelValues(endpoint, result).Inc()
	c.apiRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordPollCycle records one completed (or aborted) poll cycle.
func (c *Collector) RecordPollCycle(result string, duration time.Duration) {
	c.pollCyclesTotal.WithLabelValues(result).Inc()
	c.pollCycleDuration.Observe(duration.Seconds())
}

// SetDevicesTracked updates the tracked-device gauge.
func (c *Collector) SetDevicesTracked(count int) {
	c.devicesTracked.Set(float64(count))
}

// RecordCommand records one dispatched command outcome.
func (c *Collector) RecordCommand(attribute, result string) {
	c.commandsTotal.WithLabelValues(attribute, result).Inc()
}

// SetActiveOverrides updates the pending-override gauge.
func (c *Collector) SetActiveOverrides(count int) {
	c.overridesActive.Set(float64(count))
}

// RecordDiscrepancies counts overrides that expired without confirmation.
func (c *Collector) RecordDiscrepancies(count int) {
	c.discrepanciesTotal.Add(float64(count))
}

// SetWebSocketClients updates the connected-client gauge.
func (c *Collector) SetWebSocketClients(count int) {
	c.websocketClients.Set(float64(count))
}

// RecordHTTPRequest records one inbound API request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
