package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/logger"
	"hookrelay/pkg/models"
)

func TestEnvelopeCodec(t *testing.T) {
	env := models.Envelope{
		ID:        "e-1",
		Type:      constants.EnvelopeTypeNotification,
		Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Notification: &models.Event{
			SourceID: "com.example.chat",
			Title:    "hello",
		},
	}

	data, err := encodeEnvelope(env)
	require.NoError(t, err)

	got, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env.ID, got.ID)
	require.NotNil(t, got.Notification)
	assert.Equal(t, "hello", got.Notification.Title)
}

func TestDecodeEnvelope_Rejects(t *testing.T) {
	_, err := decodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	_, err = decodeEnvelope([]byte(`{"id":"x"}`))
	assert.Error(t, err)
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "src", partitionKey(models.Envelope{ID: "1", Notification: &models.Event{SourceID: "src"}}))
	assert.Equal(t, "dst-src", partitionKey(models.Envelope{ID: "1", Failure: &models.DeliveryFailure{SourceID: "dst-src"}}))
	assert.Equal(t, "1", partitionKey(models.Envelope{ID: "1"}))
}

func TestRetryPolicyFromConfig(t *testing.T) {
	c := NewKafkaConsumer(config.KafkaConfig{
		Retry: config.RetryConfig{MaxAttempts: 5, InitialInterval: time.Millisecond, Multiplier: 3},
	}, logger.NopLogger())

	p := c.retryPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, time.Millisecond, p.InitialInterval)
	assert.Equal(t, 3.0, p.Multiplier)
}

func TestProcessMessageWithRetry_RecoversPanic(t *testing.T) {
	c := NewKafkaConsumer(config.KafkaConfig{
		Retry: config.RetryConfig{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1},
	}, logger.NopLogger())

	calls := 0
	err := c.processMessageWithRetry(context.Background(), models.Envelope{ID: "x"}, func(context.Context, models.Envelope) error {
		calls++
		panic("boom")
	}, "topic")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestProcessMessageWithRetry_RetriesTransient(t *testing.T) {
	c := NewKafkaConsumer(config.KafkaConfig{
		Retry: config.RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1},
	}, logger.NopLogger())

	calls := 0
	err := c.processMessageWithRetry(context.Background(), models.Envelope{ID: "x"}, func(context.Context, models.Envelope) error {
		calls++
		if calls < 3 {
			return errors.New("redis timeout")
		}
		return nil
	}, "topic")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestFactory(t *testing.T) {
	p, err := NewProducer(config.BrokerConfig{Type: "none"}, logger.NopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), "t", models.Envelope{}))

	c, err := NewConsumer(config.BrokerConfig{Type: "none"}, "", logger.NopLogger())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Consume(ctx, "t", nil), context.Canceled)

	_, err = NewProducer(config.BrokerConfig{Type: "nats"}, logger.NopLogger())
	assert.Error(t, err)
}
