package batch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "claimgate/pkg/errors"
	"claimgate/pkg/models"
)

type Repository interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	MarkPending(ctx context.Context, id string, requestEnvelope json.RawMessage) error
	ApplyOutcome(ctx context.Context, id string, update outcomeUpdate) error
	UpdateAggregate(ctx context.Context, id, status string, counts Counts) error
}

// outcomeUpdate mirrors one atomic batch status write. Empty or nil fields
// leave the stored column untouched.
type outcomeUpdate struct {
	Status           string
	ExchangeID       string
	ResponseEnvelope json.RawMessage
	Errors           []models.ErrorRecord
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const batchColumns = `id, receiver_id, status, members, exchange_id,
	approved_count, rejected_count, pending_count,
	request_envelope, response_envelope, errors, created_at, updated_at, submitted_at`

func (r *PostgresRepository) Create(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Status == "" {
		record.Status = StatusDraft
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	members, err := json.Marshal(record.Members)
	if err != nil {
		return fmt.Errorf("failed to marshal batch members: %w", err)
	}

	query := `
		INSERT INTO batches (id, receiver_id, status, members, pending_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.ReceiverID, record.Status, members, len(record.Members),
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM batches WHERE id = $1`, batchColumns)

	var (
		record     Record
		members    []byte
		exchangeID sql.NullString
		request    []byte
		response   []byte
		errRecords []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.ReceiverID, &record.Status, &members, &exchangeID,
		&record.ApprovedCount, &record.RejectedCount, &record.PendingCount,
		&request, &response, &errRecords,
		&record.CreatedAt, &record.UpdatedAt, &record.SubmittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithMessage("batch not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	record.ExchangeID = exchangeID.String
	if err := json.Unmarshal(members, &record.Members); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch members: %w", err)
	}
	record.RequestEnvelope = request
	record.ResponseEnvelope = response
	if len(errRecords) > 0 {
		if err := json.Unmarshal(errRecords, &record.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal batch errors: %w", err)
		}
	}

	return &record, nil
}

// MarkPending records the immutable request envelope and moves the batch
// from draft to pending in one statement.
func (r *PostgresRepository) MarkPending(ctx context.Context, id string, requestEnvelope json.RawMessage) error {
	query := `
		UPDATE batches
		SET status = $2, request_envelope = $3, submitted_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5
	`

	res, err := r.db.ExecContext(ctx, query, id, StatusPending, []byte(requestEnvelope), time.Now().UTC(), StatusDraft)
	if err != nil {
		return fmt.Errorf("failed to mark batch pending: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark batch pending: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrConflict.WithMessage("batch is not in draft state")
	}

	return nil
}

// ApplyOutcome writes status, response envelope and error records in one
// statement so a partial outcome is never observable.
func (r *PostgresRepository) ApplyOutcome(ctx context.Context, id string, update outcomeUpdate) error {
	var errRecords []byte
	if update.Errors != nil {
		var err error
		if errRecords, err = json.Marshal(update.Errors); err != nil {
			return fmt.Errorf("failed to marshal batch errors: %w", err)
		}
	}

	query := `
		UPDATE batches
		SET status = $2,
			exchange_id = COALESCE(NULLIF($3, ''), exchange_id),
			response_envelope = COALESCE($4, response_envelope),
			errors = COALESCE($5, errors),
			updated_at = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, update.Status, update.ExchangeID,
		[]byte(update.ResponseEnvelope), errRecords, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to apply batch outcome: %w", err)
	}

	return nil
}

func (r *PostgresRepository) UpdateAggregate(ctx context.Context, id, status string, counts Counts) error {
	query := `
		UPDATE batches
		SET status = $2, approved_count = $3, rejected_count = $4, pending_count = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, counts.Approved, counts.Rejected, counts.Pending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update batch aggregate: %w", err)
	}

	return nil
}
