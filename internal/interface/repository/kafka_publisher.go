package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/domain/repository"

	"github.com/segmentio/kafka-go"
)

var _ repository.FlightPublisher = (*KafkaFlightPublisher)(nil)

// KafkaFlightPublisher writes each persisted record as a JSON message
type KafkaFlightPublisher struct {
	writer *kafka.Writer
}

// NewKafkaFlightPublisher creates a publisher for the given brokers and topic
func NewKafkaFlightPublisher(brokers []string, topic string) *KafkaFlightPublisher {
	return &KafkaFlightPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish sends the batch; records of one search share a key and so a partition
func (p *KafkaFlightPublisher) Publish(ctx context.Context, records []entity.FlightRecord) error {
	if len(records) == 0 {
		return nil
	}

	msgs, err := flightMessages(records)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d records: %w", len(msgs), err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaFlightPublisher) Close() error {
	return p.writer.Close()
}

func flightMessages(records []entity.FlightRecord) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(records))
	for _, record := range records {
		value, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(record.PublishKey()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "crawl_timestamp", Value: []byte(record.CrawlTimestamp.UTC().Format(time.RFC3339))},
			},
		})
	}
	return msgs, nil
}

var _ repository.FlightPublisher = NoopFlightPublisher{}

// NoopFlightPublisher drops everything; used when no brokers are configured
type NoopFlightPublisher struct{}

// Publish does nothing
func (NoopFlightPublisher) Publish(ctx context.Context, records []entity.FlightRecord) error {
	return nil
}

// Close does nothing
func (NoopFlightPublisher) Close() error { return nil }
