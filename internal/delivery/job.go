package delivery

import (
	"time"

	"github.com/oklog/ulid/v2"

	"hookrelay/internal/render"
)

// Job is one webhook POST waiting in the delivery queue.
type Job struct {
	ID             string             `json:"id"`
	DestinationURL string             `json:"destination_url"`
	Payload        []byte             `json:"payload"`
	Attachment     *render.Attachment `json:"attachment,omitempty"`
	SourceID       string             `json:"source_id"`
	EnqueuedAt     time.Time          `json:"enqueued_at"`
	Attempts       int                `json:"attempts"`

	// raw is the encoded form the job was read back as, used to ack it.
	raw string
}

// NewJob stamps a job with a ULID so ids sort in enqueue order.
func NewJob(destination string, payload []byte, att *render.Attachment, sourceID string, now time.Time) Job {
	return Job{
		ID:             ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		DestinationURL: destination,
		Payload:        payload,
		Attachment:     att,
		SourceID:       sourceID,
		EnqueuedAt:     now,
	}
}
