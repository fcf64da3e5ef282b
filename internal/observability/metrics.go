package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Envelope operations counted by RelayMetrics.
const (
	OpPushed   = "pushed"
	OpFetched  = "fetched"
	OpAcked    = "acked"
	OpRejected = "rejected"
)

// RelayMetrics are the relay server's collectors.
type RelayMetrics struct {
	Envelopes  *prometheus.CounterVec
	QueueDepth *prometheus.GaugeVec
}

// NewRelayMetrics creates the relay collectors and registers them on reg.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drat_relay_envelopes_total",
			Help: "Envelopes handled by the relay, by operation.",
		}, []string{"op"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "drat_relay_queue_depth",
			Help: "Envelopes waiting in a recipient's mailbox.",
		}, []string{"user"}),
	}
	reg.MustRegister(m.Envelopes, m.QueueDepth)
	return m
}

// MetricsHandler serves the collectors of g in the Prometheus text format.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
