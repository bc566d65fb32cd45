package models

import "time"

// Envelope is the Kafka wire format shared by every hookrelay topic.
type Envelope struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Source       string             `json:"source"`
	Timestamp    time.Time          `json:"timestamp"`
	TraceID      string             `json:"trace_id,omitempty"`
	Notification *Event             `json:"notification,omitempty"`
	ConfigUpdate *ConfigUpdateEvent `json:"config_update,omitempty"`
	Failure      *DeliveryFailure   `json:"failure,omitempty"`
	DeadLetter   *DeadLetter        `json:"dead_letter,omitempty"`
}

// DeadLetter is attached to an envelope the consumer gave up on.
type DeadLetter struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	At          time.Time `json:"at"`
}

// DeliveryFailure describes a job that was dropped by the delivery worker.
type DeliveryFailure struct {
	JobID          string    `json:"job_id"`
	SourceID       string    `json:"source_id"`
	DestinationURL string    `json:"destination_url"`
	Attempts       int       `json:"attempts"`
	StatusCode     int       `json:"status_code,omitempty"`
	Reason         string    `json:"reason"`
	Permanent      bool      `json:"permanent"`
	FailedAt       time.Time `json:"failed_at"`
	Payload        []byte    `json:"payload,omitempty"`
}
