package repository

import (
	"context"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
	pkgkafka "Noesis/pkg/kafka"
)

// KafkaPublisher ships raw signals to the transport topic, keyed by platform
// so one platform's signals stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates the Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) drepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, signals []models.RawSignal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(signals))
	for i, sig := range signals {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(sig.Platform),
			Value: sig,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
