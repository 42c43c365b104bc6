package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSim/internal/domain/models"
	domrepo "MarketSim/internal/domain/repository"
	"MarketSim/pkg/logger"
	"MarketSim/pkg/metrics"
)

type flakySink struct {
	name     string
	failures int
	block    chan struct{}

	mu    sync.Mutex
	calls int
	got   []*models.CandleEvent
}

func (s *flakySink) Name() string { return s.name }

func (s *flakySink) Write(_ context.Context, ev *models.CandleEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("downstream unavailable")
	}
	s.got = append(s.got, ev)
	return nil
}

func (s *flakySink) delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func (s *flakySink) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newPipeline(sinks []domrepo.CandleSink, opts ...PipelineOption) *RealtimePipeline {
	opts = append([]PipelineOption{WithRetry(3, time.Millisecond, 5*time.Millisecond)}, opts...)
	return NewRealtimePipeline(metrics.NewNop(), logger.Nop(), sinks, opts...)
}

func TestPipeline_FansOutToEverySink(t *testing.T) {
	a := &flakySink{name: "a"}
	b := &flakySink{name: "b"}
	p := newPipeline([]domrepo.CandleSink{a, nil, b})
	p.Start(context.Background())

	for day := 31; day < 34; day++ {
		require.NoError(t, p.Write(context.Background(), &models.CandleEvent{Day: day}))
	}
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, []string{"a", "b"}, p.Sinks())
	assert.Equal(t, 3, a.delivered())
	assert.Equal(t, 3, b.delivered())
	assert.Equal(t, 31, a.got[0].Day)
	assert.Equal(t, 33, b.got[2].Day)
}

func TestPipeline_RetriesFailedWrites(t *testing.T) {
	s := &flakySink{name: "archive", failures: 2}
	p := newPipeline([]domrepo.CandleSink{s})
	p.Start(context.Background())

	require.NoError(t, p.Write(context.Background(), &models.CandleEvent{Day: 31}))
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, 3, s.attempts())
	assert.Equal(t, 1, s.delivered())
}

func TestPipeline_DropsAfterMaxRetries(t *testing.T) {
	s := &flakySink{name: "archive", failures: 100}
	p := newPipeline([]domrepo.CandleSink{s})
	p.Start(context.Background())

	require.NoError(t, p.Write(context.Background(), &models.CandleEvent{Day: 31}))
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, 4, s.attempts())
	assert.Equal(t, 0, s.delivered())
}

func TestPipeline_FullLaneDropsOnlyThatSink(t *testing.T) {
	slow := &flakySink{name: "slow", block: make(chan struct{})}
	fast := &flakySink{name: "fast"}
	p := newPipeline([]domrepo.CandleSink{slow, fast}, WithBufferSize(1))

	// not started: lanes fill up without being drained
	require.NoError(t, p.Write(context.Background(), &models.CandleEvent{Day: 1}))
	err := p.Write(context.Background(), &models.CandleEvent{Day: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow")

	close(slow.block)
}

func TestPipeline_WriteAfterStop(t *testing.T) {
	p := newPipeline([]domrepo.CandleSink{&flakySink{name: "a"}})
	p.Start(context.Background())
	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, p.Stop(context.Background()))

	assert.ErrorIs(t, p.Write(context.Background(), &models.CandleEvent{}), ErrPipelineStopped)
}

func TestPipeline_StopHonoursDeadline(t *testing.T) {
	s := &flakySink{name: "stuck", block: make(chan struct{})}
	p := newPipeline([]domrepo.CandleSink{s})
	p.Start(context.Background())
	require.NoError(t, p.Write(context.Background(), &models.CandleEvent{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Stop(ctx), context.DeadlineExceeded)
	close(s.block)
}
