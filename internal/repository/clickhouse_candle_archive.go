package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"MarketSim/internal/domain/models"
	domrepo "MarketSim/internal/domain/repository"
	pkgch "MarketSim/pkg/clickhouse"
	applogger "MarketSim/pkg/logger"
)

const maxBufferedBatches = 20

const candleColumns = "run_id, kind, day, sector, size_tier, bar_time, open, high, low, close, volume, impact, active_events, generated_at"

// chDB is the part of *sql.DB the archive uses.
type chDB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PingContext(ctx context.Context) error
}

// CHCandleArchive stores generated candles in ClickHouse. Candles written
// through the sink path are buffered and inserted in batches.
type CHCandleArchive struct {
	db         chDB
	table      string
	batchSize  int
	flushEvery time.Duration
	l          *applogger.Logger

	mu  sync.Mutex
	buf []*models.CandleEvent

	stop chan struct{}
	done chan struct{}
}

var (
	_ domrepo.CandleArchive = (*CHCandleArchive)(nil)
	_ domrepo.CandleSink    = (*CHCandleArchive)(nil)
)

func NewCHCandleArchive(ch *pkgch.Client, table string, batchSize int, flushEvery time.Duration, l *applogger.Logger) *CHCandleArchive {
	return newCHCandleArchive(ch.DB(), ch.Database()+"."+table, batchSize, flushEvery, l)
}

func newCHCandleArchive(db chDB, table string, batchSize int, flushEvery time.Duration, l *applogger.Logger) *CHCandleArchive {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &CHCandleArchive{
		db:         db,
		table:      table,
		batchSize:  batchSize,
		flushEvery: flushEvery,
		l:          l.Component("clickhouse"),
	}
}

func (s *CHCandleArchive) Name() string { return "clickhouse" }

// Init creates the candle table when missing.
func (s *CHCandleArchive) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            run_id        String,
            kind          LowCardinality(String),
            day           UInt32,
            sector        LowCardinality(String),
            size_tier     LowCardinality(String),
            bar_time      String,
            open          Float64,
            high          Float64,
            low           Float64,
            close         Float64,
            volume        Int64,
            impact        Float64,
            active_events UInt16,
            generated_at  DateTime64(3)
        ) ENGINE = MergeTree
        ORDER BY (run_id, generated_at)
    `, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create candle table: %w", err)
	}
	return nil
}

// Start flushes the buffer every flushEvery until Close.
func (s *CHCandleArchive) Start(ctx context.Context) {
	if s.flushEvery <= 0 || s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.flushEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if err := s.Flush(ctx); err != nil {
					s.l.Error("periodic flush failed", applogger.Error(err))
				}
			}
		}
	}()
}

// Write buffers ev and inserts the buffer once it reaches the batch size. A
// failed insert keeps the rows for the next flush, so Write only fails when
// the buffer overflows.
func (s *CHCandleArchive) Write(ctx context.Context, ev *models.CandleEvent) error {
	s.mu.Lock()
	if len(s.buf) >= s.batchSize*maxBufferedBatches {
		s.mu.Unlock()
		return fmt.Errorf("candle buffer full (%d rows)", s.batchSize*maxBufferedBatches)
	}
	s.buf = append(s.buf, ev)
	full := len(s.buf) >= s.batchSize
	s.mu.Unlock()

	if full {
		if err := s.Flush(ctx); err != nil {
			s.l.Warn("candle flush deferred", applogger.Int("pending", s.Pending()), applogger.Error(err))
		}
	}
	return nil
}

// Flush inserts everything buffered. Failed rows go back to the buffer.
func (s *CHCandleArchive) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.buf
	s.buf = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := s.StoreBatch(ctx, batch); err != nil {
		s.mu.Lock()
		s.buf = append(batch, s.buf...)
		s.mu.Unlock()
		return err
	}
	return nil
}

// Pending reports the number of buffered candles.
func (s *CHCandleArchive) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

func (s *CHCandleArchive) Store(ctx context.Context, ev *models.CandleEvent) error {
	return s.StoreBatch(ctx, []*models.CandleEvent{ev})
}

func (s *CHCandleArchive) StoreBatch(ctx context.Context, evs []*models.CandleEvent) error {
	if len(evs) == 0 {
		return nil
	}
	start := time.Now()

	values := make([]string, 0, len(evs))
	args := make([]interface{}, 0, len(evs)*14)
	for _, ev := range evs {
		if ev == nil || ev.RunID == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			ev.RunID,
			string(ev.Kind),
			uint32(ev.Day),
			ev.Sector,
			string(ev.SizeTier),
			ev.Candle.Time,
			ev.Candle.Open,
			ev.Candle.High,
			ev.Candle.Low,
			ev.Candle.Close,
			ev.Candle.Volume,
			ev.Impact,
			uint16(ev.Events),
			ev.GeneratedAt,
		)
	}
	if len(values) == 0 {
		return nil
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, candleColumns, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse insert candles error",
			applogger.String("table", s.table),
			applogger.Int("rows", len(values)),
			applogger.Error(err),
		)
		return fmt.Errorf("insert candles: %w", err)
	}
	s.l.Debug("clickhouse insert candles ok",
		applogger.Int("rows", len(values)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Query returns the latest limit candles of a run in generation order.
func (s *CHCandleArchive) Query(ctx context.Context, runID string, limit int) ([]*models.CandleEvent, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE run_id = ? ORDER BY generated_at DESC LIMIT ?", candleColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out := make([]*models.CandleEvent, 0, limit)
	for rows.Next() {
		var (
			ev          models.CandleEvent
			kind, tier  string
			day         uint32
			activeCount uint16
		)
		if err := rows.Scan(&ev.RunID, &kind, &day, &ev.Sector, &tier, &ev.Candle.Time,
			&ev.Candle.Open, &ev.Candle.High, &ev.Candle.Low, &ev.Candle.Close, &ev.Candle.Volume,
			&ev.Impact, &activeCount, &ev.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		ev.Kind = models.CandleKind(kind)
		ev.SizeTier = models.SizeTier(tier)
		ev.Day = int(day)
		ev.Events = int(activeCount)
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to generation order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHCandleArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops the flush loop and inserts what is still buffered. The pool
// itself belongs to pkg/clickhouse.
func (s *CHCandleArchive) Close() error {
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Flush(ctx)
}
