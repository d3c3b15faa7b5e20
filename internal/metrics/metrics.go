package metrics

import (
	"net/http"
	"time"

	"github.com/berfenger/saj2mqtt/internal/core/port"
	"github.com/berfenger/saj2mqtt/pkg/saj"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "saj"

type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	reads           *prometheus.CounterVec
	enabledSensors  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of inverter HTTP round trips.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Inverter reads by result.",
		}, []string{"result"}),
		enabledSensors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enabled_sensors",
			Help:      "Sensors enabled after the last read.",
		}),
	}
	m.registry.MustRegister(
		m.requestDuration,
		m.reads,
		m.enabledSensors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Instrument feeds the request duration histogram from the protocol client.
func (m *Metrics) Instrument() *saj.Instrument {
	return &saj.Instrument{
		RecordTime: func(endpoint string, duration time.Duration) {
			m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
		},
	}
}

func (m *Metrics) ObserveRead(success bool, enabledSensors int) {
	if success {
		m.reads.WithLabelValues("success").Inc()
	} else {
		m.reads.WithLabelValues("failure").Inc()
	}
	m.enabledSensors.Set(float64(enabledSensors))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ port.ReadObserver = (*Metrics)(nil)
