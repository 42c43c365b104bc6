package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	candlesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	sinkErrors   *prometheus.CounterVec
	remoteTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	impact       *prometheus.GaugeVec
	autoAdvance  prometheus.Gauge
	latency      *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		candlesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsim_candles_generated_total",
				Help: "Total number of candles generated",
			},
			[]string{"sector", "kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsim_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		sinkErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsim_sink_errors_total",
				Help: "Candle export failures per sink",
			},
			[]string{"sink"},
		),
		remoteTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsim_remote_simulations_total",
				Help: "Remote simulation requests by outcome",
			},
			[]string{"outcome"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketsim_last_price",
				Help: "Close of the most recent generated candle",
			},
			[]string{"sector"},
		),
		impact: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketsim_impact_factor",
				Help: "Composed impact factor used for the most recent candle",
			},
			[]string{"sector"},
		),
		autoAdvance: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketsim_auto_advance_running",
				Help: "1 while the auto-advance driver is running",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketsim_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// NewNop returns a recorder bound to a private registry, for tests and
// for callers that do not expose metrics.
func NewNop() *Recorder {
	return New(prometheus.NewRegistry())
}

// RecordCandle records one generated bar. kind is "daily" or "intraday".
func (r *Recorder) RecordCandle(sector, kind string, close, impact float64) {
	r.candlesTotal.WithLabelValues(sector, kind).Inc()
	r.lastPrice.WithLabelValues(sector).Set(close)
	r.impact.WithLabelValues(sector).Set(impact)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSinkError records a failed candle export.
func (r *Recorder) RecordSinkError(sink string) {
	r.sinkErrors.WithLabelValues(sink).Inc()
}

// RecordRemote records how a remote simulation request was served.
func (r *Recorder) RecordRemote(outcome string) {
	r.remoteTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SetAutoAdvance(running bool) {
	if running {
		r.autoAdvance.Set(1)
		return
	}
	r.autoAdvance.Set(0)
}

// RecordLatency records operation latency.
func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}
