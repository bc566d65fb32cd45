package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hookrelay/internal/broker"
	"hookrelay/internal/constants"
	"hookrelay/pkg/logging"
	"hookrelay/pkg/models"
)

// FailurePublisher announces jobs the worker gave up on.
type FailurePublisher interface {
	PublishFailure(ctx context.Context, f models.DeliveryFailure) error
}

// BrokerFailurePublisher publishes delivery_failed envelopes to a topic.
type BrokerFailurePublisher struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewBrokerFailurePublisher(producer broker.Producer, topic, source string) *BrokerFailurePublisher {
	return &BrokerFailurePublisher{producer: producer, topic: topic, source: source}
}

func (p *BrokerFailurePublisher) PublishFailure(ctx context.Context, f models.DeliveryFailure) error {
	env := models.Envelope{
		ID:        uuid.New().String(),
		Type:      constants.EnvelopeTypeDeliveryFailed,
		Source:    p.source,
		Timestamp: time.Now().UTC(),
		TraceID:   logging.GetTraceID(ctx),
		Failure:   &f,
	}
	return p.producer.Publish(ctx, p.topic, env)
}
