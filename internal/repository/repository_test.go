package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSim/internal/domain/models"
	pkgkafka "MarketSim/pkg/kafka"
	applogger "MarketSim/pkg/logger"
)

type captureWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

type execCall struct {
	query string
	args  []interface{}
}

type fakeDB struct {
	mu    sync.Mutex
	calls []execCall
	err   error
}

func (f *fakeDB) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, execCall{query: query, args: args})
	return nil, nil
}

func (f *fakeDB) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (f *fakeDB) PingContext(context.Context) error { return f.err }

func (f *fakeDB) inserts() []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []execCall
	for _, c := range f.calls {
		if strings.HasPrefix(c.query, "INSERT") {
			out = append(out, c)
		}
	}
	return out
}

func candle(runID string, day int) *models.CandleEvent {
	return &models.CandleEvent{
		RunID:       runID,
		Kind:        models.KindDaily,
		Day:         day,
		Sector:      "it",
		SizeTier:    models.MidCap,
		Impact:      1.1,
		Candle:      models.CandlestickData{Time: "2026-10-17", Open: 500, High: 510, Low: 495, Close: 505, Volume: 1_200_000},
		GeneratedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC),
	}
}

func TestKafkaCandlePublisher(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaCandlePublisher(pkgkafka.NewProducerWithWriter(w, "none"), "marketsim.candles")

	require.NoError(t, p.Write(context.Background(), candle("run-a", 31)))
	require.NoError(t, p.PublishBatch(context.Background(), []*models.CandleEvent{candle("run-a", 32), candle("run-a", 33)}))
	require.NoError(t, p.PublishBatch(context.Background(), nil))

	require.Len(t, w.msgs, 3)
	m := w.msgs[0]
	assert.Equal(t, "marketsim.candles", m.Topic)
	assert.Equal(t, []byte("run-a"), m.Key)

	var got models.CandleEvent
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, 31, got.Day)
	assert.Equal(t, 505.0, got.Candle.Close)

	headers := map[string]string{}
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "daily", headers["kind"])
	assert.Equal(t, "it", headers["sector"])
	assert.Equal(t, "kafka", p.Name())
}

func TestCHCandleArchive_Init(t *testing.T) {
	db := &fakeDB{}
	a := newCHCandleArchive(db, "marketsim.candles", 2, 0, applogger.Nop())

	require.NoError(t, a.Init(context.Background()))
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].query, "CREATE TABLE IF NOT EXISTS marketsim.candles")
	assert.Contains(t, db.calls[0].query, "ORDER BY (run_id, generated_at)")
}

func TestCHCandleArchive_WriteBatches(t *testing.T) {
	db := &fakeDB{}
	a := newCHCandleArchive(db, "marketsim.candles", 2, 0, applogger.Nop())
	ctx := context.Background()

	require.NoError(t, a.Write(ctx, candle("run-a", 31)))
	assert.Empty(t, db.inserts())
	assert.Equal(t, 1, a.Pending())

	require.NoError(t, a.Write(ctx, candle("run-a", 32)))
	ins := db.inserts()
	require.Len(t, ins, 1)
	assert.Equal(t, 2, strings.Count(ins[0].query, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	assert.Len(t, ins[0].args, 28)
	assert.Equal(t, "run-a", ins[0].args[0])
	assert.Equal(t, uint32(31), ins[0].args[2])
	assert.Equal(t, 0, a.Pending())
}

func TestCHCandleArchive_FailedFlushKeepsRows(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	a := newCHCandleArchive(db, "marketsim.candles", 1, 0, applogger.Nop())

	require.NoError(t, a.Write(context.Background(), candle("run-a", 31)))
	assert.Equal(t, 1, a.Pending())
	require.Error(t, a.Flush(context.Background()))
	assert.Equal(t, 1, a.Pending())

	db.err = nil
	require.NoError(t, a.Close())
	assert.Len(t, db.inserts(), 1)
	assert.Equal(t, 0, a.Pending())
}

func TestCHCandleArchive_BufferOverflow(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	a := newCHCandleArchive(db, "marketsim.candles", 1, 0, applogger.Nop())

	for i := 0; i < maxBufferedBatches; i++ {
		require.NoError(t, a.Write(context.Background(), candle("run-a", i)))
	}
	assert.Error(t, a.Write(context.Background(), candle("run-a", 99)))
	assert.Equal(t, maxBufferedBatches, a.Pending())
}

func TestCHCandleArchive_SkipsRowsWithoutRunID(t *testing.T) {
	db := &fakeDB{}
	a := newCHCandleArchive(db, "marketsim.candles", 10, 0, applogger.Nop())

	require.NoError(t, a.StoreBatch(context.Background(), []*models.CandleEvent{nil, candle("", 1)}))
	assert.Empty(t, db.inserts())
}

func TestCHCandleArchive_PeriodicFlush(t *testing.T) {
	db := &fakeDB{}
	a := newCHCandleArchive(db, "marketsim.candles", 100, 10*time.Millisecond, applogger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.Start(ctx)
	require.NoError(t, a.Write(ctx, candle("run-a", 31)))

	assert.Eventually(t, func() bool { return len(db.inserts()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Close())
}
