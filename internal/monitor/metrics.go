package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the monitor's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Received         *prometheus.CounterVec
	DecodeErrors     prometheus.Counter
	Unroutable       prometheus.Counter
	SubscriberPanics prometheus.Counter
	Sessions         prometheus.Gauge
	Reconnects       prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetvis_messages_received_total",
			Help: "Inbound MQTT messages by category.",
		}, []string{"category"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetvis_decode_errors_total",
			Help: "Payloads that failed JSON decoding.",
		}),
		Unroutable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetvis_unroutable_messages_total",
			Help: "Messages dropped because the topic could not be parsed.",
		}),
		SubscriberPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetvis_subscriber_panics_total",
			Help: "Recovered panics in message subscribers.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleetvis_sessions",
			Help: "Number of live vehicle sessions.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetvis_broker_reconnects_total",
			Help: "Times the broker connection was lost and re-entered reconnecting.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Received,
		m.DecodeErrors,
		m.Unroutable,
		m.SubscriberPanics,
		m.Sessions,
		m.Reconnects,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
