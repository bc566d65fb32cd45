package management

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hookrelay/internal/broker"
	"hookrelay/internal/constants"
	"hookrelay/pkg/logging"
	"hookrelay/pkg/models"
)

// ConfigEventProducer tells dispatch instances to reload their settings.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewConfigEventProducer(producer broker.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ConfigEventProducer) PublishRoutingRuleEvent(ctx context.Context, action, ruleID, changedBy string) error {
	return p.publishEvent(ctx, models.ConfigUpdateEvent{
		EventType: models.EventTypeRoutingRuleUpdated,
		RuleID:    ruleID,
		Action:    action,
		Timestamp: time.Now(),
		ChangedBy: changedBy,
	})
}

func (p *ConfigEventProducer) PublishSettingsReload(ctx context.Context, changedBy string) error {
	return p.publishEvent(ctx, models.ConfigUpdateEvent{
		EventType: models.EventTypeSettingsReload,
		Action:    models.ActionReload,
		Timestamp: time.Now(),
		ChangedBy: changedBy,
	})
}

func (p *ConfigEventProducer) publishEvent(ctx context.Context, event models.ConfigUpdateEvent) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	envelope := models.Envelope{
		ID:           uuid.New().String(),
		Type:         constants.EnvelopeTypeConfigUpdate,
		Source:       "management-service",
		Timestamp:    time.Now(),
		TraceID:      logging.GetTraceID(ctx),
		ConfigUpdate: &event,
	}

	return p.producer.Publish(ctx, p.topic, envelope)
}
