package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jokerealm/ai-slides/internal/backends"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testResult() *backends.MigrationResult {
	return &backends.MigrationResult{
		MigrationID: "core_20250610000000_remove_auth_tables",
		Name:        "remove_auth_tables",
		Version:     "20250610000000",
		Backend:     "sqlite",
		Direction:   backends.Up,
		Success:     true,
	}
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, topic: "migrations"}

	require.NoError(t, p.Publish(context.Background(), testResult()))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "core_20250610000000_remove_auth_tables", string(msg.Key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "up", headers["direction"])
	assert.Equal(t, "true", headers["success"])
	assert.Equal(t, "sqlite", headers["backend"])

	var decoded backends.MigrationResult
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "remove_auth_tables", decoded.Name)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("broker down")}, topic: "migrations"}
	err := p.Publish(context.Background(), testResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "migrations")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "migrations", w.Topic)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
}
