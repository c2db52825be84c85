// Package kafka adapts the alert pipeline to a Kafka cluster: a reader
// for the raw CAP feed, a listener for sensor telemetry topics, and a
// publisher for category and dispatch fan-out.
package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces messages to per-category and per-sensor topics. The
// destination topic is chosen per message, so one writer serves every
// fan-out target. It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer. Topics are created on first use
// so a new category slug never needs operator intervention.
func NewPublisher(brokers []string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish sends one message to the given topic.
func (p *Publisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
