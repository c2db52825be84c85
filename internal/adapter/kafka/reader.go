package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/cap-alert-pipeline/internal/pipeline"
)

// Reader consumes raw CAP feed payloads from the alert source topic.
// It implements pipeline.Source.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the feed topic.
func NewReader(brokers []string, topic, groupID string, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger}
}

// Fetch blocks for the next feed payload. The returned commit hook
// acknowledges the message's offset once the batch has been processed.
func (r *Reader) Fetch(ctx context.Context) (pipeline.Message, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return pipeline.Message{}, err
	}

	r.logger.Debug("feed payload fetched",
		"partition", msg.Partition, "offset", msg.Offset, "bytes", len(msg.Value))

	return pipeline.Message{
		Payload: msg.Value,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
