// Package pipeline orchestrates the ingest-persist-disseminate cycle for
// CAP alert batches and the sensor telemetry intake.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
	"github.com/couchcryptid/cap-alert-pipeline/internal/observability"
	"github.com/couchcryptid/cap-alert-pipeline/internal/store"
)

// AlertStore persists a batch of alert records.
type AlertStore interface {
	UpsertAlerts(ctx context.Context, records []domain.AlertRecord) (store.UpsertResult, error)
}

// Publisher sends one message to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Message is one raw feed payload plus its acknowledgement hook.
type Message struct {
	Payload []byte
	Commit  func(ctx context.Context) error
}

// Source yields raw feed payloads. Fetch blocks until a payload arrives or
// the context is cancelled.
type Source interface {
	Fetch(ctx context.Context) (Message, error)
}

// Report summarises one processed batch.
type Report struct {
	RunID         string
	Received      int
	Persist       *store.UpsertResult
	PersistErr    error
	Dissemination *DisseminationReport
}

// Pipeline runs alert batches through persistence and category fan-out.
// Store and publisher are each optional: a nil collaborator skips its
// stage and the remaining stages still run.
type Pipeline struct {
	store       AlertStore
	publisher   Publisher
	topicPrefix string
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// New creates a Pipeline. store and publisher may be nil.
func New(alertStore AlertStore, publisher Publisher, topicPrefix string, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		store:       alertStore,
		publisher:   publisher,
		topicPrefix: topicPrefix,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// batch, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any batches yet")
	}
	return nil
}

// ProcessPayload decodes one raw feed payload and processes the batch. An
// undecodable payload is reported and dropped, never retried.
func (p *Pipeline) ProcessPayload(ctx context.Context, payload []byte) (Report, error) {
	records, err := domain.DecodeAlertBatch(payload)
	if err != nil {
		p.metrics.BatchDecodeErrors.Inc()
		return Report{}, err
	}
	return p.Process(ctx, records), nil
}

// Process runs one batch through every configured stage. Stage failures
// are recorded in the report; they never abort the remaining stages.
func (p *Pipeline) Process(ctx context.Context, records []domain.AlertRecord) Report {
	start := time.Now()
	report := Report{
		RunID:    uuid.NewString(),
		Received: len(records),
	}
	logger := p.logger.With("run_id", report.RunID)

	p.metrics.AlertsReceived.Add(float64(len(records)))
	p.metrics.BatchSize.Observe(float64(len(records)))

	if len(records) == 0 {
		logger.Debug("empty batch")
		return report
	}

	if p.store != nil {
		result, err := p.store.UpsertAlerts(ctx, records)
		if err != nil {
			report.PersistErr = err
			logger.Error("persist batch failed", "error", err)
		} else {
			report.Persist = &result
			p.metrics.AlertsStored.Add(float64(result.Inserted + result.Updated))
			p.metrics.AlertUpsertFailures.Add(float64(len(result.Failed)))
			logger.Info("batch persisted",
				"inserted", result.Inserted,
				"updated", result.Updated,
				"failed", len(result.Failed),
			)
		}
	} else {
		p.metrics.StagesSkipped.WithLabelValues("persist").Inc()
		logger.Debug("no store configured, skipping persist")
	}

	if p.publisher != nil {
		dissemination := p.Disseminate(ctx, records)
		report.Dissemination = &dissemination
	} else {
		p.metrics.StagesSkipped.WithLabelValues("disseminate").Inc()
		logger.Debug("no publisher configured, skipping dissemination")
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return report
}

// Run consumes feed payloads from the source until the context is
// cancelled. Fetch errors back off exponentially; processing errors are
// logged and the message is committed so a poison payload cannot wedge
// the feed.
func (p *Pipeline) Run(ctx context.Context, source Source) error {
	p.logger.Info("pipeline started", "topic_prefix", p.topicPrefix)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		msg, err := source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("fetch payload failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		if _, err := p.ProcessPayload(ctx, msg.Payload); err != nil {
			p.logger.Warn("undecodable payload dropped", "error", err)
		}
		p.commit(ctx, msg)
	}
}

func (p *Pipeline) commit(ctx context.Context, msg Message) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
