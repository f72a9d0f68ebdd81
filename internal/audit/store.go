package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"claimgate/internal/constants"
	"claimgate/pkg/models"
)

const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Record is one archived envelope exactly as it crossed the wire.
type Record struct {
	EnvelopeID   string          `bson:"envelope_id" json:"envelope_id"`
	SubmissionID string          `bson:"submission_id,omitempty" json:"submission_id,omitempty"`
	Direction    string          `bson:"direction" json:"direction"`
	EventKind    string          `bson:"event_kind,omitempty" json:"event_kind,omitempty"`
	StatusCode   int             `bson:"status_code,omitempty" json:"status_code,omitempty"`
	Body         json.RawMessage `bson:"body" json:"body"`
	RecordedAt   time.Time       `bson:"recorded_at" json:"recorded_at"`
}

type Store interface {
	RecordOutbound(ctx context.Context, submissionID string, env *models.Envelope) error
	RecordInbound(ctx context.Context, submissionID string, statusCode int, body []byte) error
	ListBySubmission(ctx context.Context, submissionID string) ([]Record, error)
}

type MongoDBStore struct {
	collection *mongo.Collection
}

func NewStore(db *mongo.Database) Store {
	return &MongoDBStore{
		collection: db.Collection(constants.AuditCollectionName),
	}
}

func (s *MongoDBStore) RecordOutbound(ctx context.Context, submissionID string, env *models.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	kind := ""
	if header, err := env.Header(); err == nil {
		kind = string(header.EventKind)
	}

	record := Record{
		EnvelopeID:   env.ID,
		SubmissionID: submissionID,
		Direction:    DirectionOutbound,
		EventKind:    kind,
		Body:         body,
		RecordedAt:   time.Now().UTC(),
	}

	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to archive outbound envelope: %w", err)
	}
	return nil
}

func (s *MongoDBStore) RecordInbound(ctx context.Context, submissionID string, statusCode int, body []byte) error {
	envelopeID := ""
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err == nil {
		envelopeID = env.ID
	}

	record := Record{
		EnvelopeID:   envelopeID,
		SubmissionID: submissionID,
		Direction:    DirectionInbound,
		StatusCode:   statusCode,
		Body:         body,
		RecordedAt:   time.Now().UTC(),
	}

	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to archive inbound envelope: %w", err)
	}
	return nil
}

func (s *MongoDBStore) ListBySubmission(ctx context.Context, submissionID string) ([]Record, error) {
	filter := bson.M{"submission_id": submissionID}
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}

// NopStore is used when no MongoDB is configured. Archiving is best effort
// and never blocks a submission.
type NopStore struct{}

func (NopStore) RecordOutbound(ctx context.Context, submissionID string, env *models.Envelope) error {
	return nil
}

func (NopStore) RecordInbound(ctx context.Context, submissionID string, statusCode int, body []byte) error {
	return nil
}

func (NopStore) ListBySubmission(ctx context.Context, submissionID string) ([]Record, error) {
	return nil, nil
}
