package repository

import (
	"context"

	"MarketSim/internal/domain/models"
	domrepo "MarketSim/internal/domain/repository"
	pkgkafka "MarketSim/pkg/kafka"
)

// KafkaCandlePublisher exports candles to a Kafka topic keyed by run ID so a
// run's candles stay ordered on one partition.
type KafkaCandlePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var (
	_ domrepo.CandlePublisher = (*KafkaCandlePublisher)(nil)
	_ domrepo.CandleSink      = (*KafkaCandlePublisher)(nil)
)

func NewKafkaCandlePublisher(producer *pkgkafka.Producer, topic string) *KafkaCandlePublisher {
	return &KafkaCandlePublisher{producer: producer, topic: topic}
}

func (p *KafkaCandlePublisher) Name() string { return "kafka" }

func (p *KafkaCandlePublisher) Write(ctx context.Context, ev *models.CandleEvent) error {
	return p.Publish(ctx, ev)
}

func (p *KafkaCandlePublisher) Publish(ctx context.Context, ev *models.CandleEvent) error {
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{candleMessage(ev)})
}

func (p *KafkaCandlePublisher) PublishBatch(ctx context.Context, evs []*models.CandleEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(evs))
	for i, ev := range evs {
		msgs[i] = candleMessage(ev)
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaCandlePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func candleMessage(ev *models.CandleEvent) pkgkafka.Message {
	return pkgkafka.Message{
		Key:   []byte(ev.RunID),
		Value: ev,
		Headers: map[string]string{
			"kind":   string(ev.Kind),
			"sector": ev.Sector,
		},
	}
}
