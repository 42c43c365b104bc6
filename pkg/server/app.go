package server

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"MarketSim/internal/middleware"
	"MarketSim/internal/repository"
	"MarketSim/internal/usecase"
	"MarketSim/pkg/config"
	xhttp "MarketSim/pkg/http"
	pkgkafka "MarketSim/pkg/kafka"
	applogger "MarketSim/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	session    *usecase.Session
	pipeline   *middleware.RealtimePipeline
	archive    *repository.CHCandleArchive
	consumer   *pkgkafka.Consumer
	controls   pkgkafka.MessageHandler
	closers    []closer
}

type closer struct {
	name string
	fn   func() error
}

type Option func(*App)

// WithArchive starts the archive's periodic flush with the app.
func WithArchive(a *repository.CHCandleArchive) Option {
	return func(app *App) { app.archive = a }
}

// WithControlConsumer feeds control commands from Kafka into the session.
func WithControlConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(app *App) {
		app.consumer = c
		app.controls = h
	}
}

// WithCloser registers a resource released on shutdown, after the HTTP
// server and the pipeline. Closers run in registration order.
func WithCloser(name string, fn func() error) Option {
	return func(app *App) {
		if fn != nil {
			app.closers = append(app.closers, closer{name: name, fn: fn})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	session *usecase.Session,
	pipeline *middleware.RealtimePipeline,
	opts ...Option,
) *App {
	a := &App{
		cfg:        cfg,
		log:        log.Component("app"),
		httpServer: httpServer,
		session:    session,
		pipeline:   pipeline,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until ctx is done or an interrupt
// arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.pipeline.Start(ctx)
	a.log.Info("candle pipeline started", applogger.Strings("sinks", a.pipeline.Sinks()))

	if a.archive != nil {
		a.archive.Start(ctx)
	}

	if a.consumer != nil && a.controls != nil {
		a.consumer.RegisterHandler(a.controls)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
		} else {
			a.log.Info("control consumer started", applogger.String("topic", a.controls.Topic()))
		}
	}

	a.log.Info("starting",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("backend", a.cfg.Backend.URL != ""),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
		applogger.Bool("clickhouse", a.cfg.ClickHouse.Enabled),
		applogger.Bool("redis", a.cfg.Redis.Enabled),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// shutdown stops intake first, then drains the sinks, then releases clients.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+a.cfg.Pipeline.DrainTimeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.session.Close(); err != nil {
		a.log.Warn("session close error", applogger.Error(err))
	}

	drainCtx, drainCancel := context.WithTimeout(ctx, a.drainTimeout())
	if err := a.pipeline.Stop(drainCtx); err != nil {
		a.log.Warn("pipeline drain incomplete", applogger.Error(err))
	}
	drainCancel()

	for _, c := range a.closers {
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}

func (a *App) drainTimeout() time.Duration {
	if a.cfg.Pipeline.DrainTimeout > 0 {
		return a.cfg.Pipeline.DrainTimeout
	}
	return 5 * time.Second
}
