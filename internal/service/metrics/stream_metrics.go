package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StreamMetrics tracks websocket subscribers of the candle stream.
type StreamMetrics struct {
	Clients prometheus.Gauge
	Sent    prometheus.Counter
	Dropped *prometheus.CounterVec
}

func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &StreamMetrics{
		Clients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketsim",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
		Sent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "marketsim",
			Subsystem: "stream",
			Name:      "messages_sent_total",
			Help:      "Candle messages queued to clients",
		}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketsim",
			Subsystem: "stream",
			Name:      "messages_dropped_total",
			Help:      "Candle messages dropped by reason",
		}, []string{"reason"}),
	}
}
