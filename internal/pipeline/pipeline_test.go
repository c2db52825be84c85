package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
	"github.com/couchcryptid/cap-alert-pipeline/internal/observability"
	"github.com/couchcryptid/cap-alert-pipeline/internal/store"
)

type mockStore struct {
	result  store.UpsertResult
	err     error
	batches [][]domain.AlertRecord
}

func (m *mockStore) UpsertAlerts(_ context.Context, records []domain.AlertRecord) (store.UpsertResult, error) {
	m.batches = append(m.batches, records)
	return m.result, m.err
}

type publishedMessage struct {
	Topic string
	Key   []byte
	Value []byte
}

type mockPublisher struct {
	failTopics map[string]bool
	messages   []publishedMessage
}

func (m *mockPublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	if m.failTopics[topic] {
		return errors.New("broker unavailable")
	}
	m.messages = append(m.messages, publishedMessage{Topic: topic, Key: key, Value: value})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(alertStore AlertStore, publisher Publisher) *Pipeline {
	return New(alertStore, publisher, "alerts", testLogger(), observability.NewMetricsForTesting())
}

func TestProcess_PersistAndDisseminate(t *testing.T) {
	st := &mockStore{result: store.UpsertResult{Inserted: 2}}
	pub := &mockPublisher{}
	p := newTestPipeline(st, pub)

	report := p.Process(context.Background(), []domain.AlertRecord{
		{Identifier: "A-1", DisasterType: "Cyclonic Storm"},
		{Identifier: "A-2", DisasterType: "Earthquake"},
	})

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Received)
	require.NotNil(t, report.Persist)
	assert.Equal(t, 2, report.Persist.Inserted)

	require.Len(t, st.batches, 1)
	require.NotNil(t, report.Dissemination)
	assert.Equal(t, map[string]int{
		"alerts/weather_cyclone": 1,
		"alerts/earthquake":      1,
	}, report.Dissemination.Published)
}

func TestProcess_NilStoreSkipsPersist(t *testing.T) {
	pub := &mockPublisher{}
	p := newTestPipeline(nil, pub)

	report := p.Process(context.Background(), []domain.AlertRecord{
		{Identifier: "A-1", DisasterType: "Earthquake"},
	})

	assert.Nil(t, report.Persist)
	assert.NoError(t, report.PersistErr)
	require.NotNil(t, report.Dissemination)
	assert.Len(t, pub.messages, 1)
}

func TestProcess_NilPublisherSkipsDissemination(t *testing.T) {
	st := &mockStore{result: store.UpsertResult{Inserted: 1}}
	p := newTestPipeline(st, nil)

	report := p.Process(context.Background(), []domain.AlertRecord{
		{Identifier: "A-1", DisasterType: "Earthquake"},
	})

	require.NotNil(t, report.Persist)
	assert.Nil(t, report.Dissemination)
}

func TestProcess_PersistFailureStillDisseminates(t *testing.T) {
	st := &mockStore{err: errors.New("connection refused")}
	pub := &mockPublisher{}
	p := newTestPipeline(st, pub)

	report := p.Process(context.Background(), []domain.AlertRecord{
		{Identifier: "A-1", DisasterType: "Earthquake"},
	})

	assert.Error(t, report.PersistErr)
	assert.Nil(t, report.Persist)
	require.NotNil(t, report.Dissemination)
	assert.Len(t, pub.messages, 1)
}

func TestProcess_EmptyBatch(t *testing.T) {
	pub := &mockPublisher{}
	p := newTestPipeline(nil, pub)

	report := p.Process(context.Background(), nil)

	assert.Equal(t, 0, report.Received)
	assert.Empty(t, pub.messages)
}

func TestProcessPayload_DecodeError(t *testing.T) {
	p := newTestPipeline(nil, nil)

	_, err := p.ProcessPayload(context.Background(), []byte("not json"))
	assert.Error(t, err)
}

func TestProcessPayload_FeatureCollection(t *testing.T) {
	pub := &mockPublisher{}
	p := newTestPipeline(nil, pub)

	payload := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": null, "properties": {"identifier": "A-1", "disaster_type": "Tsunami"}}
		]
	}`)

	report, err := p.ProcessPayload(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Received)
	assert.Equal(t, map[string]int{"alerts/tsunami": 1}, report.Dissemination.Published)
}

func TestCheckReadiness(t *testing.T) {
	p := newTestPipeline(nil, nil)

	assert.Error(t, p.CheckReadiness(context.Background()))

	p.Process(context.Background(), []domain.AlertRecord{{Identifier: "A-1"}})
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

type scriptedSource struct {
	messages []Message
	cancel   context.CancelFunc
}

func (s *scriptedSource) Fetch(ctx context.Context) (Message, error) {
	if len(s.messages) == 0 {
		s.cancel()
		<-ctx.Done()
		return Message{}, ctx.Err()
	}
	msg := s.messages[0]
	s.messages = s.messages[1:]
	return msg, nil
}

func TestRun_ProcessesAndCommits(t *testing.T) {
	pub := &mockPublisher{}
	p := newTestPipeline(nil, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	committed := 0
	source := &scriptedSource{
		cancel: cancel,
		messages: []Message{
			{
				Payload: []byte(`[{"type":"Feature","geometry":null,"properties":{"identifier":"A-1","disaster_type":"Landslide"}}]`),
				Commit:  func(context.Context) error { committed++; return nil },
			},
			{
				// A poison payload is committed too, so it cannot wedge the feed.
				Payload: []byte("not json"),
				Commit:  func(context.Context) error { committed++; return nil },
			},
		},
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, source) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after context cancellation")
	}

	assert.Equal(t, 2, committed)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "alerts/landslide", pub.messages[0].Topic)
}
