package repository

import (
	"context"

	"LoanServe/internal/domain/models"
	pkgkafka "LoanServe/pkg/kafka"
)

// KafkaPublisher ships prediction events to a Kafka topic. Events with the
// same label land on the same partition, which keeps per-label ordering for
// downstream consumers.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec *models.PredictionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.Label), rec)
}

// PublishMessage satisfies the log collector's publisher contract, so the
// same producer can carry aggregated error logs on a separate topic.
func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
