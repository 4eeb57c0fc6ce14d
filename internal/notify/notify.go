// Package notify publishes migration results to a message bus.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/config"
	"github.com/Jokerealm/ai-slides/internal/notify/kafka"
	"github.com/Jokerealm/ai-slides/internal/notify/pulsar"
)

// Publisher sends a migration result somewhere other processes can see it.
type Publisher interface {
	Publish(ctx context.Context, result *backends.MigrationResult) error
	Close() error
}

// Noop discards results. It is used when no bus is configured.
type Noop struct{}

func (Noop) Publish(context.Context, *backends.MigrationResult) error { return nil }

func (Noop) Close() error { return nil }

// New creates the publisher selected by cfg.Type.
func New(cfg config.NotifyConfig) (Publisher, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return Noop{}, nil

	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required")
		}
		if cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka topic is required")
		}
		return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil

	case "pulsar":
		if cfg.PulsarURL == "" {
			return nil, fmt.Errorf("pulsar URL is required")
		}
		if cfg.PulsarTopic == "" {
			return nil, fmt.Errorf("pulsar topic is required")
		}
		p, err := pulsar.NewPublisher(cfg.PulsarURL, cfg.PulsarTopic)
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported notify type: %s (supported: none, kafka, pulsar)", cfg.Type)
	}
}
