package di

import (
	"context"
	"fmt"
	"time"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/domain/repository"
	"MarketSim/internal/domain/service"
	"MarketSim/internal/engine"
	"MarketSim/internal/handler/api"
	mid "MarketSim/internal/middleware"
	"MarketSim/internal/narrative"
	internalrepo "MarketSim/internal/repository"
	svcmetrics "MarketSim/internal/service/metrics"
	"MarketSim/internal/service/ratelimit"
	"MarketSim/internal/service/stream"
	"MarketSim/internal/services/backend"
	"MarketSim/internal/usecase"
	pkgcache "MarketSim/pkg/cache"
	pkgch "MarketSim/pkg/clickhouse"
	"MarketSim/pkg/config"
	xhttp "MarketSim/pkg/http"
	pkgkafka "MarketSim/pkg/kafka"
	applogger "MarketSim/pkg/logger"
	"MarketSim/pkg/metrics"
	"MarketSim/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideKafkaProducer creates a Kafka producer. It returns nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	// writer errors must bypass the error collector, which publishes here
	wl, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		// candles of one run stay on one partition
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerLogger(wl),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideErrorCollector aggregates warn/error logs onto a Kafka topic. It
// returns nil unless enabled.
func ProvideErrorCollector(cfg *config.Config, producer *pkgkafka.Producer) *applogger.ErrorCollector {
	if !cfg.Logging.ErrorCollector.Enabled || producer == nil {
		return nil
	}
	return applogger.NewErrorCollector(applogger.CollectorConfig{
		FlushInterval: cfg.Logging.ErrorCollector.FlushInterval,
		Topic:         cfg.Logging.ErrorCollector.Topic,
		Publisher:     producer,
	})
}

// ProvideLogger builds the root logger. The collector is attached before any
// component logger is derived so every child reports to it.
func ProvideLogger(cfg *config.Config, collector *applogger.ErrorCollector) (*applogger.Logger, error) {
	l, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	if collector != nil {
		l.AttachCollector(collector)
	}
	return l, nil
}

func newLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics returns the Prometheus recorder, or a no-op one when
// metrics are disabled.
func ProvideMetrics(cfg *config.Config) *metrics.Recorder {
	if !cfg.Metrics.Enabled {
		return metrics.NewNop()
	}
	return metrics.New(nil)
}

func ProvideStreamMetrics() *svcmetrics.StreamMetrics {
	return svcmetrics.NewStreamMetrics(nil)
}

// ProvideHub creates the WebSocket candle stream. It returns nil when
// streaming is disabled.
func ProvideHub(cfg *config.Config, sm *svcmetrics.StreamMetrics, log *applogger.Logger) *stream.Hub {
	if !cfg.Stream.Enabled {
		return nil
	}
	return stream.NewHub(sm, log,
		stream.WithPingInterval(cfg.Stream.PingInterval),
		stream.WithWriteTimeout(cfg.Stream.WriteTimeout),
		stream.WithClientBuffer(cfg.Stream.ClientBuffer),
		stream.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
}

// ProvideClickHouseClient creates a ClickHouse client. It returns nil when
// the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCandleArchive creates the candle table and the batching archive.
func ProvideCandleArchive(cfg *config.Config, ch *pkgch.Client, log *applogger.Logger) (*internalrepo.CHCandleArchive, error) {
	if ch == nil {
		return nil, nil
	}
	archive := internalrepo.NewCHCandleArchive(ch, cfg.ClickHouse.Table, cfg.ClickHouse.BatchSize, cfg.ClickHouse.FlushEvery, log)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("candle archive: %w", err)
	}
	return archive, nil
}

// ProvideCandlePublisher publishes candles to Kafka when a producer exists.
func ProvideCandlePublisher(cfg *config.Config, producer *pkgkafka.Producer) *internalrepo.KafkaCandlePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaCandlePublisher(producer, cfg.Kafka.CandleTopic)
}

// ProvidePipeline fans candles out to every configured sink.
func ProvidePipeline(
	cfg *config.Config,
	m repository.Metrics,
	log *applogger.Logger,
	hub *stream.Hub,
	publisher *internalrepo.KafkaCandlePublisher,
	archive *internalrepo.CHCandleArchive,
) *mid.RealtimePipeline {
	// nil pointers must not become non-nil interfaces
	var sinks []repository.CandleSink
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if publisher != nil {
		sinks = append(sinks, publisher)
	}
	if archive != nil {
		sinks = append(sinks, archive)
	}
	return mid.NewRealtimePipeline(m, log, sinks,
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
		mid.WithRetry(cfg.Pipeline.MaxRetries, cfg.Pipeline.BackoffMin, cfg.Pipeline.BackoffMax),
	)
}

func ProvideSession(cfg *config.Config, m repository.Metrics, log *applogger.Logger, pipeline *mid.RealtimePipeline) *usecase.Session {
	sim := cfg.Simulation
	engOpts := []engine.Option{
		engine.WithRetention(sim.Retention),
		engine.WithSeedBars(sim.SeedBars),
		engine.WithDefaultProfile(models.Profile{
			Size:   models.SizeTier(sim.DefaultProfile.Size),
			Sector: sim.DefaultProfile.Sector,
		}),
	}
	if sim.Seed != 0 {
		engOpts = append(engOpts, engine.WithSeed(sim.Seed))
	}
	return usecase.NewSession(m, log,
		usecase.WithEngineOptions(engOpts...),
		usecase.WithSink(pipeline),
		usecase.WithClearEventsAfterCandle(sim.ClearEventsAfterCandle),
		usecase.WithAutoAdvanceInterval(sim.AutoAdvanceInterval),
	)
}

// ProvideRedisCache connects to Redis. An unreachable server degrades the
// result cache to memory only.
func ProvideRedisCache(cfg *config.Config, log *applogger.Logger) *pkgcache.RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	rc, err := pkgcache.NewRedisCache(ctx,
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		pkgcache.WithRedisPoolSize(cfg.Redis.PoolSize),
		pkgcache.WithRedisTimeouts(cfg.Redis.DialTimeout, cfg.Redis.IOTimeout),
	)
	if err != nil {
		log.Warn("redis unavailable, using memory cache only",
			applogger.String("addr", cfg.Redis.Addr),
			applogger.Error(err),
		)
		return nil
	}
	return rc
}

func ProvideResultCache(cfg *config.Config, rc *pkgcache.RedisCache) *pkgcache.LayeredCache {
	return pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(1000),
		pkgcache.WithLayeredMemoryTTL(cfg.Backend.CacheTTL),
	)
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Backend.RateLimit, cfg.Backend.Burst)
}

func ProvideBackendClient(cfg *config.Config) *backend.Client {
	return backend.New(cfg)
}

// ProvideRemoteSimulation serves multi-day forecasts from the model backend
// when one is configured and from the local generator otherwise.
func ProvideRemoteSimulation(
	cfg *config.Config,
	client *backend.Client,
	results *pkgcache.LayeredCache,
	limiter *ratelimit.Limiter,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.RemoteSimulation {
	opts := []usecase.RemoteOption{
		usecase.WithCache(results, cfg.Backend.CacheTTL),
		usecase.WithLockWait(cfg.Redis.LockWait),
		usecase.WithLimiter(limiter),
	}
	if client.Configured() {
		opts = append(opts, usecase.WithBackend(client))
	}
	return usecase.NewRemoteSimulation(usecase.NewSyntheticSimulator(), m, log, opts...)
}

// ProvideExplainer returns the local story generator, fronted by the
// narrative service when its URL is set.
func ProvideExplainer(cfg *config.Config, log *applogger.Logger) service.Explainer {
	local := narrative.NewGenerator(nil)
	if cfg.Narrative.URL == "" {
		return local
	}
	return narrative.NewRemoteExplainer(cfg.Narrative.URL, cfg.Narrative.Timeout, local, log)
}

// ProvideControlConsumer subscribes to the control topic. It returns nil when
// Kafka is disabled.
func ProvideControlConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	opts := []pkgkafka.ConsumerOption{
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerStartFrom(c.StartFrom),
		pkgkafka.WithConsumerMaxBytes(c.MaxBytes),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerLogger(log),
	}
	opts = append(opts, pkgkafka.WithConsumerDLQ(c.DLQTopic))
	consumer, err := pkgkafka.NewConsumer(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

func ProvideControlHandler(cfg *config.Config, session *usecase.Session, m repository.Metrics, log *applogger.Logger) *usecase.ControlHandler {
	return usecase.NewControlHandler(cfg.Kafka.ControlTopic, session, m, log)
}

// ProvideHTTPHandler assembles the route handlers. Optional backends only
// contribute routes and health checks when present.
func ProvideHTTPHandler(
	log *applogger.Logger,
	session *usecase.Session,
	explainer service.Explainer,
	remote *usecase.RemoteSimulation,
	archive *internalrepo.CHCandleArchive,
	hub *stream.Hub,
	rc *pkgcache.RedisCache,
) xhttp.Handler {
	checks := map[string]api.HealthCheck{}
	var candles repository.CandleArchive
	if archive != nil {
		candles = archive
		checks["clickhouse"] = archive.Health
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rc.Ping(ctx)
		}
	}

	handlers := xhttp.Handlers{
		api.NewHealthHandler(checks),
		api.NewSimulationHandler(log, session, explainer),
		api.NewRemoteHandler(log, remote, session),
		api.NewArchiveHandler(log, candles, session),
	}
	if hub != nil {
		handlers = append(handlers, api.NewStreamHandler(hub))
	}
	return handlers
}

func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, log *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(log),
	)
}

// ProvideApp creates the application. Closers run after the pipeline has
// drained, sinks first, then the clients they write through.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	session *usecase.Session,
	pipeline *mid.RealtimePipeline,
	hub *stream.Hub,
	archive *internalrepo.CHCandleArchive,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	controls *usecase.ControlHandler,
	results *pkgcache.LayeredCache,
	collector *applogger.ErrorCollector,
) *server.App {
	opts := []server.Option{}
	if hub != nil {
		opts = append(opts, server.WithCloser("stream", hub.Close))
	}
	if archive != nil {
		opts = append(opts,
			server.WithArchive(archive),
			server.WithCloser("archive", archive.Close),
		)
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch.Close))
	}
	if consumer != nil {
		opts = append(opts, server.WithControlConsumer(consumer, controls))
	}
	if collector != nil {
		opts = append(opts, server.WithCloser("error collector", func() error {
			log.DetachCollector()
			return nil
		}))
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer.Close))
	}
	// closes redis too
	opts = append(opts, server.WithCloser("result cache", results.Close))
	return server.New(cfg, log, httpServer, session, pipeline, opts...)
}
