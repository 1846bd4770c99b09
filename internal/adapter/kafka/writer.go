// Package kafka mirrors accepted samples and alert records onto Kafka topics
// for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/aqi-monitor-service/internal/config"
	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// Record types carried in the record_type header.
const (
	RecordSample = "sample"
	RecordAlert  = "alert"
)

// Writer produces sample and alert messages.
// It implements pipeline.Publisher.
type Writer struct {
	writer      *kafkago.Writer
	sampleTopic string
	alertTopic  string
	logger      *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sample and alert topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Writer{
		writer:      w,
		sampleTopic: cfg.KafkaSampleTopic,
		alertTopic:  cfg.KafkaAlertTopic,
		logger:      logger,
	}
}

// PublishSample writes one sample keyed by city.
func (w *Writer) PublishSample(ctx context.Context, s domain.AqiSample) error {
	msg, err := sampleMessage(w.sampleTopic, s)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish sample: %w", err)
	}
	return nil
}

// PublishAlert writes one alert record keyed by city.
func (w *Writer) PublishAlert(ctx context.Context, r domain.AlertRecord) error {
	msg, err := alertMessage(w.alertTopic, r)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// sampleMessage marshals a sample into a Kafka message. The category header
// lets consumers filter without decoding the value.
func sampleMessage(topic string, s domain.AqiSample) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sample: %w", err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(s.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(RecordSample)},
			{Key: "category", Value: []byte(domain.ClassifySample(s).Category)},
		},
	}, nil
}

func alertMessage(topic string, r domain.AlertRecord) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert record: %w", err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(r.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(RecordAlert)},
			{Key: "category", Value: []byte(domain.Classify(r.City, r.AQI).Category)},
		},
	}, nil
}
