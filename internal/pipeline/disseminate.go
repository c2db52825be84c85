package pipeline

import (
	"context"
	"encoding/json"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
)

// DisseminationReport records the outcome of one category fan-out.
type DisseminationReport struct {
	// Published maps topic name to the number of alerts carried by the
	// message sent there.
	Published map[string]int
	// FailedTopics lists topics whose publish failed. Alerts for one
	// failed topic never block the others.
	FailedTopics []string
}

type categoryBatch struct {
	category domain.Category
	records  []domain.AlertRecord
}

// Disseminate groups the batch by category and publishes one
// FeatureCollection per non-empty category to <prefix>/<slug>. Input
// order is preserved within each category message.
func (p *Pipeline) Disseminate(ctx context.Context, records []domain.AlertRecord) DisseminationReport {
	report := DisseminationReport{Published: make(map[string]int)}

	for _, batch := range partitionByCategory(records) {
		topic := domain.TopicFor(p.topicPrefix, batch.category)
		payload, err := encodeCategoryMessage(topic, batch)
		if err != nil {
			// Records decoded from JSON always re-encode; this guards
			// programmatic callers passing unmarshalable properties.
			p.logger.Error("encode category message failed", "topic", topic, "error", err)
			p.metrics.PublishErrors.Inc()
			report.FailedTopics = append(report.FailedTopics, topic)
			continue
		}

		if err := p.publisher.Publish(ctx, topic, []byte(batch.category.Slug), payload); err != nil {
			p.logger.Error("publish category message failed",
				"topic", topic, "alerts", len(batch.records), "error", err)
			p.metrics.PublishErrors.Inc()
			report.FailedTopics = append(report.FailedTopics, topic)
			continue
		}

		p.metrics.AlertsPublished.Add(float64(len(batch.records)))
		p.logger.Info("category message published", "topic", topic, "alerts", len(batch.records))
		report.Published[topic] = len(batch.records)
	}
	return report
}

// partitionByCategory splits records into per-category batches. Batches
// appear in first-seen order and empty categories produce no batch.
func partitionByCategory(records []domain.AlertRecord) []categoryBatch {
	index := make(map[string]int)
	var batches []categoryBatch

	for _, record := range records {
		category := domain.Categorize(record)
		i, ok := index[category.Slug]
		if !ok {
			i = len(batches)
			index[category.Slug] = i
			batches = append(batches, categoryBatch{category: category})
		}
		batches[i].records = append(batches[i].records, record)
	}
	return batches
}

func encodeCategoryMessage(topic string, batch categoryBatch) ([]byte, error) {
	features := make([]map[string]any, 0, len(batch.records))
	for _, record := range batch.records {
		feature := map[string]any{
			"type":       "Feature",
			"properties": record.Properties,
		}
		if len(record.Geometry) > 0 {
			feature["geometry"] = json.RawMessage(record.Geometry)
		} else {
			feature["geometry"] = nil
		}
		features = append(features, feature)
	}

	return json.Marshal(map[string]any{
		"type":     "FeatureCollection",
		"features": features,
		"metadata": map[string]any{
			"category":     batch.category.Slug,
			"count":        len(batch.records),
			"topic":        topic,
			"generated_at": domain.Clock().Now().UTC(),
		},
	})
}
