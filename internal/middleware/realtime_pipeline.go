package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"MarketSim/internal/domain/models"
	domrepo "MarketSim/internal/domain/repository"
	"MarketSim/pkg/logger"
)

// ErrPipelineStopped is returned by Write after Stop.
var ErrPipelineStopped = errors.New("pipeline stopped")

// RealtimePipeline sits between the session and the candle sinks. Each sink
// gets its own buffered lane so a slow archive never delays the stream.
// Failed writes are retried with exponential backoff, then dropped.
type RealtimePipeline struct {
	metrics    domrepo.Metrics
	log        *logger.Logger
	bufSize    int
	maxRetries uint64
	backoffMin time.Duration
	backoffMax time.Duration

	mu      sync.RWMutex
	lanes   []*lane
	started bool
	stopped bool
	wg      sync.WaitGroup
}

type lane struct {
	sink domrepo.CandleSink
	ch   chan *models.CandleEvent
}

type PipelineOption func(*RealtimePipeline)

// WithBufferSize sets the per-sink queue length.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetry sets how often and how patiently a failed write is retried.
func WithRetry(maxRetries int, min, max time.Duration) PipelineOption {
	return func(p *RealtimePipeline) {
		if maxRetries >= 0 {
			p.maxRetries = uint64(maxRetries)
		}
		if min > 0 {
			p.backoffMin = min
		}
		if max > 0 {
			p.backoffMax = max
		}
	}
}

func NewRealtimePipeline(metrics domrepo.Metrics, log *logger.Logger, sinks []domrepo.CandleSink, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		metrics:    metrics,
		log:        log.Component("pipeline"),
		bufSize:    256,
		maxRetries: 3,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		p.lanes = append(p.lanes, &lane{sink: s, ch: make(chan *models.CandleEvent, p.bufSize)})
	}
	return p
}

func (p *RealtimePipeline) Name() string { return "pipeline" }

// Sinks lists the downstream sink names.
func (p *RealtimePipeline) Sinks() []string {
	out := make([]string, len(p.lanes))
	for i, l := range p.lanes {
		out[i] = l.sink.Name()
	}
	return out
}

// Start launches one worker per sink. Workers drain their queue on Stop.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	for _, l := range p.lanes {
		p.wg.Add(1)
		go p.run(ctx, l)
	}
}

func (p *RealtimePipeline) run(ctx context.Context, l *lane) {
	defer p.wg.Done()
	for ev := range l.ch {
		p.deliver(ctx, l.sink, ev)
	}
}

func (p *RealtimePipeline) deliver(ctx context.Context, sink domrepo.CandleSink, ev *models.CandleEvent) {
	start := time.Now()
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.backoffMin
	exp.MaxInterval = p.backoffMax
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, p.maxRetries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		return sink.Write(ctx, ev)
	}, policy)
	if err != nil {
		p.metrics.RecordSinkError(sink.Name())
		p.log.Warn("candle dropped after retries",
			logger.String("sink", sink.Name()),
			logger.Int("attempts", attempt),
			logger.Int("day", ev.Day),
			logger.Error(err),
		)
		return
	}
	p.metrics.RecordLatency("sink_"+sink.Name(), time.Since(start))
}

// Write enqueues ev on every lane without blocking. A full lane drops the
// candle for that sink only.
func (p *RealtimePipeline) Write(_ context.Context, ev *models.CandleEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPipelineStopped
	}

	var full []string
	for _, l := range p.lanes {
		select {
		case l.ch <- ev:
		default:
			p.metrics.RecordSinkError(l.sink.Name())
			full = append(full, l.sink.Name())
		}
	}
	if len(full) > 0 {
		return fmt.Errorf("sink queue full: %v", full)
	}
	return nil
}

// Stop closes the lanes and waits for queued candles to be delivered or for
// ctx to expire.
func (p *RealtimePipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	for _, l := range p.lanes {
		close(l.ch)
	}
	p.mu.Unlock()

	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline drain: %w", ctx.Err())
	}
}
