package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func (w *captureWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	in        chan kafka.Message
	closed    chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	committed []kafka.Message
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{in: make(chan kafka.Message, len(msgs)), closed: make(chan struct{})}
	for _, m := range msgs {
		r.in <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.in:
		return m, nil
	case <-r.closed:
		return kafka.Message{}, io.EOF
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type recordingHandler struct {
	topic string
	fail  func([]byte) bool

	mu    sync.Mutex
	seen  [][]byte
	calls int
}

func (h *recordingHandler) Topic() string { return h.topic }

func (h *recordingHandler) Handle(_ context.Context, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.fail != nil && h.fail(data) {
		return errors.New("rejected")
	}
	h.seen = append(h.seen, data)
	return nil
}

func (h *recordingHandler) snapshot() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen), h.calls
}

func TestProducer_PublishEncodesJSONAndHeaders(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "snappy")

	err := p.PublishBatch(context.Background(), "marketsim.candles", []Message{{
		Key:     []byte("run-1"),
		Value:   map[string]float64{"close": 101.5},
		Headers: map[string]string{"run_id": "run-1"},
	}})
	require.NoError(t, err)

	msgs := w.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "marketsim.candles", msgs[0].Topic)
	assert.Equal(t, []byte("run-1"), msgs[0].Key)
	assert.JSONEq(t, `{"close":101.5}`, string(msgs[0].Value))
	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, "run_id", msgs[0].Headers[0].Key)

	require.NoError(t, p.PublishMessage(context.Background(), "marketsim.errors", "raw"))
	assert.Equal(t, []byte("raw"), w.messages()[1].Value)
}

func TestProducer_WriteErrorIsWrapped(t *testing.T) {
	w := &captureWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "none")

	err := p.Publish(context.Background(), "t", nil, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka write t")
	assert.Contains(t, err.Error(), "broker down")
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Topic: "ctl", Partition: 0, Offset: 1, Value: []byte(`{"op":"a"}`)},
		kafka.Message{Topic: "ctl", Partition: 0, Offset: 2, Value: []byte(`{"op":"b"}`)},
	)
	handler := &recordingHandler{topic: "ctl"}

	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithReaderFactory(func(*ConsumerConfig, string) Reader { return reader }),
	)
	require.NoError(t, err)
	c.RegisterHandler(handler)
	require.NoError(t, c.Start())

	assert.Eventually(t, func() bool { return reader.commits() == 2 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	ok, calls := handler.snapshot()
	assert.Equal(t, 2, ok)
	assert.Equal(t, 2, calls)
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "ctl", Value: []byte("poison")})
	dlq := &captureWriter{}
	handler := &recordingHandler{topic: "ctl", fail: func([]byte) bool { return true }}

	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
		WithConsumerDLQ("ctl.dlq"),
		WithDLQWriter(dlq),
		WithReaderFactory(func(*ConsumerConfig, string) Reader { return reader }),
	)
	require.NoError(t, err)
	c.RegisterHandler(handler)
	require.NoError(t, c.Start())

	assert.Eventually(t, func() bool { return reader.commits() == 1 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	_, calls := handler.snapshot()
	assert.Equal(t, 3, calls)

	msgs := dlq.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ctl.dlq", msgs[0].Topic)
	assert.Equal(t, []byte("poison"), msgs[0].Value)
	assert.Equal(t, "source_topic", msgs[0].Headers[len(msgs[0].Headers)-1].Key)
}

func TestConsumer_PermanentErrorsSkipRetry(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "ctl", Value: []byte("bad")})
	dlq := &captureWriter{}
	var calls int32
	var mu sync.Mutex
	handler := handlerFunc{topic: "ctl", fn: func(context.Context, []byte) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return Permanent(errors.New("unknown command"))
	}}

	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(5, time.Millisecond, 2*time.Millisecond),
		WithConsumerDLQ("ctl.dlq"),
		WithDLQWriter(dlq),
		WithReaderFactory(func(*ConsumerConfig, string) Reader { return reader }),
	)
	require.NoError(t, err)
	c.RegisterHandler(handler)
	require.NoError(t, c.Start())

	assert.Eventually(t, func() bool { return reader.commits() == 1 }, 2*time.Second, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	mu.Lock()
	assert.Equal(t, int32(1), calls)
	mu.Unlock()
	assert.Len(t, dlq.messages(), 1)
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	base := errors.New("x")
	err := fmt.Errorf("wrap: %w", Permanent(base))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}

type handlerFunc struct {
	topic string
	fn    func(context.Context, []byte) error
}

func (h handlerFunc) Topic() string                              { return h.topic }
func (h handlerFunc) Handle(ctx context.Context, b []byte) error { return h.fn(ctx, b) }

func TestConsumer_StartWithoutHandlers(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	assert.Error(t, c.Start())

	_, err = NewConsumer()
	assert.Error(t, err)
}

func TestHookChain_OrderAndPanicSafety(t *testing.T) {
	var order []string
	record := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after:"+name)
			},
		}
	}

	chain := NewHookChain(record("a"), nil, record("b"))
	ctx, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte(">"))
	require.NoError(t, err)
	assert.Equal(t, ">ab", string(data))
	chain.AfterHandle(ctx, "t", kafka.Message{}, data, nil)
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, order)

	var onErr int
	panicky := NewHookChain(HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("bad hook")
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) { onErr++ },
	})
	_, _, _, err = panicky.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
	assert.Equal(t, 1, onErr)
}

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TraceHook().BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceIDFrom(ctx))
	assert.Equal(t, "", TraceIDFrom(context.Background()))
}

func TestBackoffWithJitter_Bounds(t *testing.T) {
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

func TestEncodeValue(t *testing.T) {
	v, err := encodeValue(struct {
		A int `json:"a"`
	}{A: 1})
	require.NoError(t, err)
	var out map[string]int
	require.NoError(t, json.Unmarshal(v, &out))
	assert.Equal(t, 1, out["a"])

	_, err = encodeValue(func() {})
	assert.Error(t, err)
}

func TestProducerOptionsKeepDefaults(t *testing.T) {
	cfg := defaultProducerConfig()
	for _, opt := range []ProducerOption{
		WithCompression(""),
		WithMaxAttempts(0),
		WithBatchSize(0),
		WithBatchBytes(-1),
		WithTimeouts(0, time.Second),
		WithClientID(""),
	} {
		opt(cfg)
	}
	assert.Equal(t, "snappy", cfg.Compression)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1<<20, cfg.BatchBytes)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
	assert.Equal(t, "marketsim", cfg.ClientID)
}

func TestObserveAsyncCompletion(t *testing.T) {
	m := kafkaMetrics()
	topic := "async-completion-test"
	before := testutil.ToFloat64(m.publishErrs.WithLabelValues(topic))
	beforeMsgs := testutil.ToFloat64(m.published.WithLabelValues(topic, "snappy", "async_error"))

	msgs := []kafka.Message{{Topic: topic}, {Topic: topic}}
	m.observeAsyncCompletion(msgs, "snappy", nil)
	m.observeAsyncCompletion(msgs, "snappy", errors.New("broker down"))

	assert.Equal(t, before+1, testutil.ToFloat64(m.publishErrs.WithLabelValues(topic)))
	assert.Equal(t, beforeMsgs+2, testutil.ToFloat64(m.published.WithLabelValues(topic, "snappy", "async_error")))
}

func TestConsumerOptions(t *testing.T) {
	cfg := defaultConsumerConfig()
	for _, opt := range []ConsumerOption{
		WithConsumerStartFrom("earliest"),
		WithConsumerMaxBytes(0),
		WithConsumerRetry(5, 0, time.Second),
		WithConsumerWorkers(-1),
	} {
		opt(cfg)
	}
	assert.Equal(t, kafka.FirstOffset, cfg.StartOffset)
	assert.Equal(t, int(10e6), cfg.MaxBytes)
	assert.Equal(t, 5, cfg.RetryMax)
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffMin)
	assert.Equal(t, time.Second, cfg.BackoffMax)
	assert.Equal(t, 1, cfg.WorkerCount)

	WithConsumerStartFrom("latest")(cfg)
	assert.Equal(t, kafka.LastOffset, cfg.StartOffset)
}
