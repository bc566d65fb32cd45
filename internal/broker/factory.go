package broker

import (
	"fmt"

	"hookrelay/internal/config"
	"hookrelay/internal/logger"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	case "none":
		return NopProducer{}, nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

// NewConsumer builds a consumer in the configured group. A non-empty
// groupSuffix gives the consumer its own group, so every instance sees
// every message (used for config broadcasts).
func NewConsumer(cfg config.BrokerConfig, groupSuffix string, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case "kafka":
		kcfg := cfg.Kafka
		if groupSuffix != "" {
			kcfg.GroupID = kcfg.GroupID + "-" + groupSuffix
			kcfg.DLQTopic = ""
		}
		return NewKafkaConsumer(kcfg, log), nil
	case "none":
		return &NopConsumer{}, nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
