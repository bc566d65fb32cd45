package broker

import (
	"context"

	"hookrelay/pkg/models"
)

// NopProducer drops every message. Used when broker.type is "none".
type NopProducer struct{}

func (NopProducer) Publish(context.Context, string, models.Envelope) error { return nil }

func (NopProducer) Close() error { return nil }

// NopConsumer never delivers anything and returns when ctx ends.
type NopConsumer struct{}

func (*NopConsumer) Consume(ctx context.Context, _ string, _ HandlerFunc) error {
	<-ctx.Done()
	return ctx.Err()
}

func (*NopConsumer) Close() error { return nil }

func (*NopConsumer) SetServiceName(string) {}
