package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Publisher ships aggregated entries, typically to a Kafka topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectorConfig struct {
	FlushInterval  time.Duration
	CountThreshold int // distinct entries that force an early flush
	Topic          string
	Publisher      Publisher
	PublishTimeout time.Duration
}

// AggregatedEntry is one distinct warn/error entry and how often it occurred
// since the last flush.
type AggregatedEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`

	seq uint64
}

// ErrorCollector deduplicates repeated warn/error entries and publishes them
// in batches.
type ErrorCollector struct {
	cfg     CollectorConfig
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]*AggregatedEntry
	seq     uint64
	flushCh chan []AggregatedEntry
	stop    chan struct{}
	closed  bool
	wg      sync.WaitGroup
	once    sync.Once
}

func NewErrorCollector(cfg CollectorConfig) *ErrorCollector {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	c := &ErrorCollector{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*AggregatedEntry),
		flushCh: make(chan []AggregatedEntry, 8),
		stop:    make(chan struct{}),
	}
	c.wg.Add(2)
	go c.tick()
	go c.publishLoop()
	return c
}

func fingerprint(level, msg, caller string, fields map[string]interface{}) string {
	raw, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		C string                 `json:"c"`
		F map[string]interface{} `json:"f"`
	}{level, msg, caller, fields})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Add records one occurrence.
func (c *ErrorCollector) Add(level, msg string, fields map[string]interface{}, caller string) {
	key := fingerprint(level, msg, caller, fields)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.seq++
		c.entries[key] = &AggregatedEntry{
			seq:       c.seq,
			Level:     level,
			Message:   msg,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	if len(c.entries) >= c.cfg.CountThreshold {
		c.enqueueLocked()
	}
}

// Pending returns the aggregated entries not yet flushed, oldest first.
func (c *ErrorCollector) Pending() []AggregatedEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *ErrorCollector) snapshotLocked() []AggregatedEntry {
	out := make([]AggregatedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Flush hands the pending entries to the publisher.
func (c *ErrorCollector) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enqueueLocked()
}

func (c *ErrorCollector) enqueueLocked() {
	if c.closed || len(c.entries) == 0 {
		return
	}
	batch := c.snapshotLocked()
	c.entries = make(map[string]*AggregatedEntry)
	select {
	case c.flushCh <- batch:
	default:
		// publisher is backed up; the batch is dropped rather than blocking logging
	}
}

func (c *ErrorCollector) tick() {
	defer c.wg.Done()
	t := time.NewTicker(c.cfg.FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.Flush()
		case <-c.stop:
			c.mu.Lock()
			c.enqueueLocked()
			c.closed = true
			close(c.flushCh)
			c.mu.Unlock()
			return
		}
	}
}

func (c *ErrorCollector) publishLoop() {
	defer c.wg.Done()
	for batch := range c.flushCh {
		if c.cfg.Publisher == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PublishTimeout)
		_ = c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch)
		cancel()
	}
}

// Close flushes what is pending and waits for the publisher to drain.
func (c *ErrorCollector) Close() {
	c.once.Do(func() {
		close(c.stop)
		c.wg.Wait()
	})
}
