package delivery

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hookrelay/internal/constants"
)

const (
	AttemptDelivered = "delivered"
	AttemptRetrying  = "retrying"
	AttemptFailed    = "failed"
)

// Attempt is one row of the delivery attempt log.
type Attempt struct {
	ID             string    `bson:"_id" json:"id"`
	JobID          string    `bson:"job_id" json:"job_id"`
	SourceID       string    `bson:"source_id" json:"source_id"`
	DestinationURL string    `bson:"destination_url" json:"destination_url"`
	Attempt        int       `bson:"attempt" json:"attempt"`
	Status         string    `bson:"status" json:"status"`
	StatusCode     int       `bson:"status_code,omitempty" json:"status_code,omitempty"`
	Error          string    `bson:"error,omitempty" json:"error,omitempty"`
	DurationMs     int64     `bson:"duration_ms" json:"duration_ms"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

type AttemptFilter struct {
	JobID    string
	SourceID string
	Status   string
	Limit    int
	Offset   int
}

type AttemptLog interface {
	Record(ctx context.Context, a Attempt) error
	List(ctx context.Context, f AttemptFilter) ([]Attempt, error)
}

// NopAttemptLog discards attempts. Used when attempt recording is off.
type NopAttemptLog struct{}

func (NopAttemptLog) Record(context.Context, Attempt) error { return nil }

func (NopAttemptLog) List(context.Context, AttemptFilter) ([]Attempt, error) {
	return []Attempt{}, nil
}

type MongoAttemptLog struct {
	collection *mongo.Collection
}

func NewMongoAttemptLog(db *mongo.Database) *MongoAttemptLog {
	return &MongoAttemptLog{collection: db.Collection(constants.AttemptsCollection)}
}

func (l *MongoAttemptLog) Record(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = fmt.Sprintf("%s:%d", a.JobID, a.Attempt)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := l.collection.ReplaceOne(ctx, bson.M{"_id": a.ID}, a, opts); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}
	return nil
}

func (l *MongoAttemptLog) List(ctx context.Context, f AttemptFilter) ([]Attempt, error) {
	filter := bson.M{}
	if f.JobID != "" {
		filter["job_id"] = f.JobID
	}
	if f.SourceID != "" {
		filter["source_id"] = f.SourceID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	limit := f.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "attempt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(f.Offset))

	cursor, err := l.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	defer cursor.Close(ctx)

	attempts := []Attempt{}
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode delivery attempts: %w", err)
	}
	return attempts, nil
}
