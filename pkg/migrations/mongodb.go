package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"claimgate/internal/constants"
)

// EnsureAuditIndexes creates the indexes the envelope archive queries by.
// Safe to call on every startup.
func EnsureAuditIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.AuditCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "envelope_id", Value: 1}},
			Options: options.Index().SetName("idx_audit_envelope_id"),
		},
		{
			Keys:    bson.D{{Key: "submission_id", Value: 1}, {Key: "recorded_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_submission_recorded"),
		},
		{
			Keys:    bson.D{{Key: "direction", Value: 1}, {Key: "recorded_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_direction_recorded"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create audit indexes: %w", err)
		}
	}

	return nil
}
