package pulsar

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/logger"
)

type sender interface {
	Send(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error)
	Close()
}

// Publisher sends migration results to a Pulsar topic
type Publisher struct {
	client   pulsar.Client
	producer sender
	topic    string
}

// NewPublisher creates a new Pulsar publisher
func NewPublisher(url, topic string) (*Publisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create Pulsar producer: %w", err)
	}

	return &Publisher{
		client:   client,
		producer: producer,
		topic:    topic,
	}, nil
}

// Publish publishes a migration result to Pulsar
func (p *Publisher) Publish(ctx context.Context, result *backends.MigrationResult) error {
	msg, err := newMessage(result)
	if err != nil {
		return err
	}

	if _, err := p.producer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Pulsar: %w", err)
	}

	logger.Infof("Published result of %s (%s) to Pulsar topic %s", result.MigrationID, result.Direction, p.topic)
	return nil
}

// Close closes the Pulsar producer and client
func (p *Publisher) Close() error {
	p.producer.Close()
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

func newMessage(result *backends.MigrationResult) (*pulsar.ProducerMessage, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal migration result: %w", err)
	}

	return &pulsar.ProducerMessage{
		Payload: data,
		Key:     result.MigrationID,
		Properties: map[string]string{
			"migration-id": result.MigrationID,
			"backend":      result.Backend,
			"direction":    string(result.Direction),
			"success":      strconv.FormatBool(result.Success),
		},
	}, nil
}
