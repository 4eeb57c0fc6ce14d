package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes migration results to a Kafka topic
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		writer: writer,
		topic:  topic,
	}
}

// Publish publishes a migration result to Kafka
func (p *Publisher) Publish(ctx context.Context, result *backends.MigrationResult) error {
	message, err := newMessage(result)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	logger.Infof("Published result of %s (%s) to Kafka topic %s", result.MigrationID, result.Direction, p.topic)
	return nil
}

// Close closes the Kafka writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func newMessage(result *backends.MigrationResult) (kafka.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal migration result: %w", err)
	}

	return kafka.Message{
		Key:   []byte(result.MigrationID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "migration-id", Value: []byte(result.MigrationID)},
			{Key: "backend", Value: []byte(result.Backend)},
			{Key: "direction", Value: []byte(result.Direction)},
			{Key: "success", Value: []byte(strconv.FormatBool(result.Success))},
		},
	}, nil
}
