package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// clientMetrics holds the collectors shared by every producer and consumer
// in the process.
type clientMetrics struct {
	published   *prometheus.CounterVec
	publishErrs *prometheus.CounterVec
	publishedB  *prometheus.CounterVec
	publishLat  *prometheus.HistogramVec

	queueDepth *prometheus.GaugeVec
	handleLat  *prometheus.HistogramVec
	failures   *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *clientMetrics
)

func kafkaMetrics() *clientMetrics {
	metricsOnce.Do(func() {
		metricsInst = &clientMetrics{
			published: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "marketsim_kafka_producer_messages_total",
				Help: "Messages published to Kafka by result",
			}, []string{"topic", "compression", "result"}),
			publishErrs: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "marketsim_kafka_producer_errors_total",
				Help: "Failed publish calls and async deliveries",
			}, []string{"topic"}),
			publishedB: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "marketsim_kafka_producer_bytes_total",
				Help: "Payload bytes published",
			}, []string{"topic", "compression"}),
			publishLat: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "marketsim_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			queueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "marketsim_kafka_consumer_queue_depth",
				Help: "Messages waiting in the consumer queue",
			}, []string{"topic"}),
			handleLat: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name: "marketsim_kafka_consumer_handle_seconds",
				Help: "Handling time per message",
			}, []string{"topic"}),
			failures: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "marketsim_kafka_consumer_failures_total",
				Help: "Messages that failed after all retries",
			}, []string{"topic"}),
		}
	})
	return metricsInst
}

func (m *clientMetrics) observePublish(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		m.publishErrs.WithLabelValues(topic).Inc()
	}
	m.published.WithLabelValues(topic, comp, result).Add(float64(count))
	m.publishedB.WithLabelValues(topic, comp).Add(float64(bytes))
	m.publishLat.WithLabelValues(topic).Observe(dur.Seconds())
}

// observeAsyncCompletion counts deliveries an async Publish could not
// report to its caller.
func (m *clientMetrics) observeAsyncCompletion(msgs []kafka.Message, comp string, err error) {
	if err == nil || len(msgs) == 0 {
		return
	}
	topic := msgs[0].Topic
	m.publishErrs.WithLabelValues(topic).Inc()
	m.published.WithLabelValues(topic, comp, "async_error").Add(float64(len(msgs)))
}
