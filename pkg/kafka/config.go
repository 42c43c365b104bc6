package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"

	applogger "MarketSim/pkg/logger"
)

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Brokers  []string
	ClientID string

	// delivery
	RequiredAcks int // -1 = all in-sync replicas
	MaxAttempts  int
	Async        bool
	HashByKey    bool

	// batching
	Compression  string
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration

	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	// Logger receives writer errors. In async mode it is the only place
	// delivery failures surface.
	Logger *applogger.Logger
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		ClientID:     "marketsim",
		RequiredAcks: -1,
		MaxAttempts:  3,
		Compression:  "snappy",
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression accepts none, gzip, snappy, lz4 or zstd.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		if compression != "" {
			c.Compression = compression
		}
	}
}

func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithBatchSize caps messages per batch; WithBatchBytes caps its size and
// WithBatchTimeout how long a partial batch waits.
func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
	}
}

func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if timeout > 0 {
			c.BatchTimeout = timeout
		}
	}
}

func WithBatchBytes(bytes int) ProducerOption {
	return func(c *ProducerConfig) {
		if bytes > 0 {
			c.BatchBytes = bytes
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithAsync makes Publish return before delivery.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// WithHashByKey routes equal keys (run IDs) to one partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}

func WithClientID(id string) ProducerOption {
	return func(c *ProducerConfig) {
		if id != "" {
			c.ClientID = id
		}
	}
}

func WithProducerLogger(l *applogger.Logger) ProducerOption {
	return func(c *ProducerConfig) { c.Logger = l }
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	// StartOffset applies to groups without a committed offset.
	StartOffset int64
	MinBytes    int
	MaxBytes    int

	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string

	Logger    *applogger.Logger
	NewReader ReaderFactory
	DLQWriter Writer
}

func defaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:     "marketsim",
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		WorkerCount: 1,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  100 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		Logger:      applogger.Nop(),
		NewReader:   newKafkaReader,
	}
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if groupID != "" {
			c.GroupID = groupID
		}
	}
}

// WithConsumerStartFrom picks where a new group starts: "earliest" replays
// the topic, anything else starts at the tail.
func WithConsumerStartFrom(where string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if where == "earliest" {
			c.StartOffset = kafka.FirstOffset
		} else {
			c.StartOffset = kafka.LastOffset
		}
	}
}

// WithConsumerMaxBytes caps a single fetch; zero keeps the default.
func WithConsumerMaxBytes(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.MaxBytes = n
		}
	}
}

func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// WithConsumerRetry sets how often a failing message is retried and the
// backoff range between attempts.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		if backoffMin > 0 {
			c.BackoffMin = backoffMin
		}
		if backoffMax > 0 {
			c.BackoffMax = backoffMax
		}
	}
}

// WithConsumerDLQ names the dead-letter topic; empty disables it.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerLogger(l *applogger.Logger) ConsumerOption {
	return func(c *ConsumerConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithReaderFactory replaces the kafka-go reader, mostly for tests.
func WithReaderFactory(f ReaderFactory) ConsumerOption {
	return func(c *ConsumerConfig) { c.NewReader = f }
}

// WithDLQWriter replaces the dead-letter writer, mostly for tests.
func WithDLQWriter(w Writer) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQWriter = w }
}
