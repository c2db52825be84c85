package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// SensorHandler consumes one sensor message from a topic.
type SensorHandler interface {
	Handle(ctx context.Context, topic string, payload []byte) error
}

// Listener subscribes to the configured sensor telemetry topics and feeds
// each message to the handler.
type Listener struct {
	reader  *kafkago.Reader
	handler SensorHandler
	logger  *slog.Logger
}

// NewListener creates a consumer-group reader spanning all sensor topics.
func NewListener(brokers, topics []string, groupID string, handler SensorHandler, logger *slog.Logger) *Listener {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    1e6,
	})
	return &Listener{reader: r, handler: handler, logger: logger}
}

// Run consumes sensor messages until the context is cancelled. Handler
// errors are logged and the offset is committed anyway: telemetry is a
// stream of fresh readings, and replaying a failed one is worth less
// than the next one.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("sensor listener started")

	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("sensor listener stopping", "reason", ctx.Err())
				return nil
			}
			l.logger.Error("fetch sensor message failed", "error", err)
			continue
		}

		if err := l.handler.Handle(ctx, msg.Topic, msg.Value); err != nil {
			l.logger.Warn("sensor message handling failed",
				"topic", msg.Topic, "offset", msg.Offset, "error", err)
		}

		if err := l.reader.CommitMessages(ctx, msg); err != nil {
			l.logger.Warn("commit sensor offset failed", "error", err)
		}
	}
}

func (l *Listener) Close() error {
	return l.reader.Close()
}
