// Command genalerts generates a deterministic CAP alert fixture covering
// every category, using the actual domain package so the fixture always
// matches pipeline behavior. The fixture can be written to a file or
// published straight onto the feed topic.
//
// Usage:
//
//	go run ./cmd/genalerts -out data/fixtures/cap_alerts.json
//	go run ./cmd/genalerts -brokers localhost:9092 -topic cap-alerts-raw
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
)

var baseTime = time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)

// fixtureDef describes one generated alert. Hindi text exercises the
// bilingual keyword rules the same way the live feed does.
type fixtureDef struct {
	disasterType string
	warning      string
	severity     string
}

var defs = []fixtureDef{
	{"Cyclonic Storm", "Cyclone warning for coastal districts", "Extreme"},
	{"Heavy Rainfall", "बाढ़ की चेतावनी", "Severe"},
	{"Thunderstorm", "Thunderstorm with lightning expected", "Moderate"},
	{"Hailstorm", "ओलावृष्टि की संभावना", "Moderate"},
	{"Cloudburst", "Cloud burst risk in hilly areas", "Severe"},
	{"Cold Wave", "शीत लहर की चेतावनी", "Moderate"},
	{"Heat Wave", "Heat wave conditions likely", "Severe"},
	{"Dust Storm", "धूल भरी हवाएं चलने की संभावना", "Moderate"},
	{"Earthquake", "भूकंप के झटके महसूस किए गए", "Severe"},
	{"Tsunami", "Tsunami watch for the coastline", "Extreme"},
	{"Landslide", "भूस्खलन का खतरा", "Severe"},
	{"Avalanche", "Avalanche risk above 3000m", "Severe"},
	{"Drought", "सूखा घोषित", "Moderate"},
	{"Forest Fire", "Pre-fire alert for dry forest belt", "Severe"},
	{"Pest Attack", "टिड्डी दल की चेतावनी", "Moderate"},
	{"Volcanic Eruption", "Uncategorizable hazard for testing", "Unknown"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the fixture (default stdout)")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers to publish to instead of writing a file")
	topic := flag.String("topic", "cap-alerts-raw", "feed topic when publishing")
	flag.Parse()

	payload, err := buildFixture()
	if err != nil {
		return err
	}

	if *brokers != "" {
		return publish(strings.Split(*brokers, ","), *topic, payload)
	}

	if *out == "" {
		_, err := os.Stdout.Write(append(payload, '\n'))
		return err
	}
	if err := os.WriteFile(*out, payload, 0o644); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d alerts)", *out, len(defs))
	return nil
}

func buildFixture() ([]byte, error) {
	features := make([]map[string]any, 0, len(defs))
	for i, def := range defs {
		// Each alert gets its own unit polygon so polygon matching in a
		// seeded environment stays predictable.
		lon := 70.0 + float64(i)
		polygon := map[string]any{
			"type": "Polygon",
			"coordinates": [][][2]float64{{
				{lon, 20}, {lon + 1, 20}, {lon + 1, 21}, {lon, 21}, {lon, 20},
			}},
		}

		category := domain.Categorize(domain.AlertRecord{
			DisasterType:   def.disasterType,
			WarningMessage: def.warning,
		})
		identifier := fmt.Sprintf("TEST-%s-%03d", strings.ToUpper(category.Slug), i+1)

		features = append(features, map[string]any{
			"type":     "Feature",
			"geometry": polygon,
			"properties": map[string]any{
				"identifier":           identifier,
				"disaster_type":        def.disasterType,
				"warning_message":      def.warning,
				"severity":             def.severity,
				"area_description":     fmt.Sprintf("Test district %d", i+1),
				"effective_start_time": baseTime.Format(time.RFC3339),
				"effective_end_time":   baseTime.Add(24 * time.Hour).Format(time.RFC3339),
				"language":             "en-IN",
			},
		})
	}

	payload, err := json.MarshalIndent(map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding fixture: %w", err)
	}

	// The fixture must round-trip through the real decoder.
	records, err := domain.DecodeAlertBatch(payload)
	if err != nil {
		return nil, fmt.Errorf("fixture does not decode: %w", err)
	}
	log.Printf("fixture decodes to %d records", len(records))
	return payload, nil
}

func publish(brokers []string, topic string, payload []byte) error {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.WriteMessages(ctx, kafkago.Message{Value: payload}); err != nil {
		return fmt.Errorf("publishing fixture: %w", err)
	}
	log.Printf("published fixture to %s (%d alerts)", topic, len(defs))
	return nil
}
