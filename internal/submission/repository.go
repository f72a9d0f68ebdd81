package submission

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
	Create(ctx context.Context, sub *Submission) error
	Get(ctx context.Context, id string) (*Submission, error)
	GetByFocusID(ctx context.Context, focusID string) (*Submission, error)
	MarkPending(ctx context.Context, id string, requestEnvelope json.RawMessage) error
	ApplyOutcome(ctx context.Context, id string, update OutcomeUpdate) error
	ApplyOutcomeIfQueued(ctx context.Context, id string, update OutcomeUpdate) (bool, error)
	AttachToBatch(ctx context.Context, id, batchID string) error
	DetachFromBatch(ctx context.Context, id string) error
	ListByBatch(ctx context.Context, batchID string) ([]Submission, error)
	ListStuckPending(ctx context.Context, olderThan time.Duration) ([]Submission, error)
	MarkQueued(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const submissionColumns = `id, exchange_id, kind, status, receiver_id, focus_type, focus_id,
	patient_id, coverage_id, provider_id, insurer_id, batch_id, request_payload,
	request_envelope, response_envelope, disposition, approved_amount, denied_amount,
	errors, created_at, updated_at, submitted_at`

func (r *PostgresRepository) Create(ctx context.Context, sub *Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = StatusDraft
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
		INSERT INTO submissions (id, kind, status, receiver_id, focus_type, focus_id,
			patient_id, coverage_id, provider_id, insurer_id, batch_id, request_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.Kind, sub.Status, sub.ReceiverID, sub.FocusType, sub.FocusID,
		sub.PatientID, sub.CoverageID, sub.ProviderID, sub.InsurerID, sub.BatchID,
		[]byte(sub.RequestPayload), sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1`, submissionColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByFocusID looks a submission up by its focal resource identifier
// (claim id or eligibility request id). Used by poll correlation.
func (r *PostgresRepository) GetByFocusID(ctx context.Context, focusID string) (*Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE focus_id = $1 ORDER BY created_at DESC LIMIT 1`, submissionColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, focusID))
}

// MarkPending records the immutable request envelope and moves the record
// from draft to pending in one statement.
func (r *PostgresRepository) MarkPending(ctx context.Context, id string, requestEnvelope json.RawMessage) error {
	query := `
		UPDATE submissions
		SET status = $2, request_envelope = $3, submitted_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, id, StatusPending, []byte(requestEnvelope), time.Now().UTC(), StatusDraft)
	if err != nil {
		return fmt.Errorf("failed to mark submission pending: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrConflict.WithMessage("submission is not in draft state").WithDetail("id", id)
	}

	return nil
}

// ApplyOutcome writes the status transition, response envelope and derived
// outcome fields in a single statement so partial writes are never
// observable.
func (r *PostgresRepository) ApplyOutcome(ctx context.Context, id string, update OutcomeUpdate) error {
	_, err := r.applyOutcome(ctx, id, update, nil)
	return err
}

// ApplyOutcomeIfQueued applies the update only when the record is still
// queued. Re-applying the same adjudication is a no-op, which keeps poll
// correlation idempotent.
func (r *PostgresRepository) ApplyOutcomeIfQueued(ctx context.Context, id string, update OutcomeUpdate) (bool, error) {
	current := StatusQueued
	return r.applyOutcome(ctx, id, update, &current)
}

func (r *PostgresRepository) applyOutcome(ctx context.Context, id string, update OutcomeUpdate, currentStatus *string) (bool, error) {
	var errorsJSON interface{}
	if len(update.Errors) > 0 {
		raw, err := json.Marshal(update.Errors)
		if err != nil {
			return false, fmt.Errorf("failed to marshal error records: %w", err)
		}
		errorsJSON = raw
	}

	query := `
		UPDATE submissions
		SET status = $2,
			exchange_id = COALESCE(NULLIF($3, ''), exchange_id),
			response_envelope = COALESCE($4, response_envelope),
			disposition = COALESCE(NULLIF($5, ''), disposition),
			approved_amount = COALESCE($6, approved_amount),
			denied_amount = COALESCE($7, denied_amount),
			errors = COALESCE($8, errors),
			updated_at = $9
		WHERE id = $1
	`
	args := []interface{}{
		id, update.Status, update.ExchangeID, []byte(update.ResponseEnvelope),
		update.Disposition, update.ApprovedAmount, update.DeniedAmount,
		errorsJSON, time.Now().UTC(),
	}

	if currentStatus != nil {
		query += ` AND status = $10`
		args = append(args, *currentStatus)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to apply submission outcome: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *PostgresRepository) AttachToBatch(ctx context.Context, id, batchID string) error {
	query := `UPDATE submissions SET batch_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, batchID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to attach submission to batch: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DetachFromBatch(ctx context.Context, id string) error {
	query := `UPDATE submissions SET batch_id = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to detach submission from batch: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByBatch(ctx context.Context, batchID string) ([]Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE batch_id = $1 ORDER BY created_at`, submissionColumns)

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch submissions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListStuckPending finds records left pending past the given age. A crash
// between send and outcome recorded leaves them here; the recovery sweep
// flags them for poll.
func (r *PostgresRepository) ListStuckPending(ctx context.Context, olderThan time.Duration) ([]Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE status = $1 AND submitted_at < $2 ORDER BY submitted_at`, submissionColumns)

	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := r.db.QueryContext(ctx, query, StatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck submissions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *PostgresRepository) MarkQueued(ctx context.Context, id string) error {
	query := `UPDATE submissions SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	if _, err := r.db.ExecContext(ctx, query, id, StatusQueued, time.Now().UTC(), StatusPending); err != nil {
		return fmt.Errorf("failed to mark submission queued: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanOne(row rowScanner) (*Submission, error) {
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithMessage("submission not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

func (r *PostgresRepository) scanAll(rows *sql.Rows) ([]Submission, error) {
	var subs []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return subs, nil
}

func scanSubmission(row rowScanner) (*Submission, error) {
	var sub Submission
	var exchangeID, focusType, focusID, patientID, coverageID, providerID, insurerID, disposition sql.NullString
	var requestPayload, requestEnvelope, responseEnvelope, errorsJSON []byte

	err := row.Scan(
		&sub.ID, &exchangeID, &sub.Kind, &sub.Status, &sub.ReceiverID, &focusType, &focusID,
		&patientID, &coverageID, &providerID, &insurerID, &sub.BatchID, &requestPayload,
		&requestEnvelope, &responseEnvelope, &disposition, &sub.ApprovedAmount, &sub.DeniedAmount,
		&errorsJSON, &sub.CreatedAt, &sub.UpdatedAt, &sub.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.RequestPayload = requestPayload

	sub.ExchangeID = exchangeID.String
	sub.FocusType = focusType.String
	sub.FocusID = focusID.String
	sub.PatientID = patientID.String
	sub.CoverageID = coverageID.String
	sub.ProviderID = providerID.String
	sub.InsurerID = insurerID.String
	sub.Disposition = disposition.String
	sub.RequestEnvelope = requestEnvelope
	sub.ResponseEnvelope = responseEnvelope

	if len(errorsJSON) > 0 {
		var records []models.ErrorRecord
		if err := json.Unmarshal(errorsJSON, &records); err != nil {
			return nil, fmt.Errorf("failed to decode error records: %w", err)
		}
		sub.Errors = records
	}

	return &sub, nil
}
