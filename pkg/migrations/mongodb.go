package migrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hookrelay/internal/constants"
)

// AttemptRetention bounds how long delivery attempts are kept.
const AttemptRetention = 30 * 24 * time.Hour

// EnsureMongoCollection creates the indexes of the delivery attempt log,
// including a TTL index on created_at.
func EnsureMongoCollection(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.AttemptsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "attempt", Value: 1}},
			Options: options.Index().SetName("idx_delivery_attempts_job_attempt"),
		},
		{
			Keys:    bson.D{{Key: "source_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_delivery_attempts_source_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_delivery_attempts_status_created"),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetName("idx_delivery_attempts_ttl").
				SetExpireAfterSeconds(int32(AttemptRetention.Seconds())),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
