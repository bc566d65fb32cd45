package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	RedisKeyDeliveryQueue    = "hookrelay:delivery:queue"
	RedisKeyDeliveryInFlight = "hookrelay:delivery:inflight"
	RedisKeyPendingQueue     = "hookrelay:quiet:pending"
)

const (
	DefaultInputTopic  = "notification_events"
	DefaultMongoDBName = "hookrelay"
	AttemptsCollection = "delivery_attempts"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// MaxAttachmentBytes is the largest image forwarded with a webhook.
const MaxAttachmentBytes = 8 << 20

// PendingQueueCap bounds the quiet-hours queue; the oldest items are dropped.
const PendingQueueCap = 500

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	DefaultRetryInitialInterval = 10 * time.Second
	DefaultRetryMaxInterval     = 5 * time.Hour
	DefaultRetryMultiplier      = 2.0
	DefaultRetryMaxAttempts     = 10
)

const (
	EnvelopeTypeNotification   = "notification"
	EnvelopeTypeConfigUpdate   = "config_update"
	EnvelopeTypeDeliveryFailed = "delivery_failed"
)

// DeliveryQueueDegradedDepth is the backlog past which /health reports
// degraded.
const DeliveryQueueDegradedDepth = 10000
