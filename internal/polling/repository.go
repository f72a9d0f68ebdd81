package polling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "claimgate/pkg/errors"
)

type Repository interface {
	// CreateIfAbsent inserts the interaction unless its dedup key already
	// exists. Returns true when a row was inserted.
	CreateIfAbsent(ctx context.Context, interaction *PendingInteraction) (bool, error)
	Get(ctx context.Context, id string) (*PendingInteraction, error)
	ListOpen(ctx context.Context) ([]PendingInteraction, error)
	ListOpenFoci(ctx context.Context) ([]FocusRef, error)
	Close(ctx context.Context, id string) (bool, error)
	CloseByFocus(ctx context.Context, kind, focusID string) (bool, error)

	// RecordQueuedSubmission and RecordUnacknowledgedCommunication satisfy
	// the submission engine's interaction recorder.
	RecordQueuedSubmission(ctx context.Context, submissionID, focusType, focusID string) error
	RecordUnacknowledgedCommunication(ctx context.Context, submissionID, communicationID string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const interactionColumns = `id, kind, status, submission_id, exchange_request_id, focus_type, focus_id, dedup_key, created_at, updated_at, closed_at`

func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, interaction *PendingInteraction) (bool, error) {
	if interaction.ID == "" {
		interaction.ID = uuid.New().String()
	}
	if interaction.Status == "" {
		interaction.Status = InteractionOpen
	}
	now := time.Now().UTC()
	interaction.CreatedAt = now
	interaction.UpdatedAt = now

	query := `
		INSERT INTO pending_interactions (id, kind, status, submission_id, exchange_request_id, focus_type, focus_id, dedup_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dedup_key) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		interaction.ID, interaction.Kind, interaction.Status,
		nullable(interaction.SubmissionID), nullable(interaction.ExchangeRequestID),
		nullable(interaction.FocusType), nullable(interaction.FocusID),
		interaction.DedupKey, interaction.CreatedAt, interaction.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create pending interaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*PendingInteraction, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_interactions WHERE id = $1`, interactionColumns)

	interaction, err := scanInteraction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithMessage("pending interaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending interaction: %w", err)
	}
	return interaction, nil
}

func (r *PostgresRepository) ListOpen(ctx context.Context) ([]PendingInteraction, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_interactions WHERE status = $1 ORDER BY created_at`, interactionColumns)

	rows, err := r.db.QueryContext(ctx, query, InteractionOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open interactions: %w", err)
	}
	defer rows.Close()

	var interactions []PendingInteraction
	for rows.Next() {
		interaction, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, *interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return interactions, nil
}

// ListOpenFoci returns the distinct focal resources with outstanding work,
// the fan-out set for a poll-all cycle.
func (r *PostgresRepository) ListOpenFoci(ctx context.Context) ([]FocusRef, error) {
	query := `
		SELECT DISTINCT focus_type, focus_id FROM pending_interactions
		WHERE status = $1 AND focus_id IS NOT NULL
		ORDER BY focus_type, focus_id
	`

	rows, err := r.db.QueryContext(ctx, query, InteractionOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open foci: %w", err)
	}
	defer rows.Close()

	var foci []FocusRef
	for rows.Next() {
		var focus FocusRef
		if err := rows.Scan(&focus.Type, &focus.ID); err != nil {
			return nil, fmt.Errorf("failed to scan focus: %w", err)
		}
		foci = append(foci, focus)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate foci: %w", err)
	}
	return foci, nil
}

func (r *PostgresRepository) Close(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE pending_interactions
		SET status = $2, closed_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, id, InteractionClosed, time.Now().UTC(), InteractionOpen)
	if err != nil {
		return false, fmt.Errorf("failed to close pending interaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// CloseByFocus closes the open interaction of one kind for a focal
// resource. An already-closed or unknown focus is a no-op so re-polls never
// double-count.
func (r *PostgresRepository) CloseByFocus(ctx context.Context, kind, focusID string) (bool, error) {
	query := `
		UPDATE pending_interactions
		SET status = $3, closed_at = $4, updated_at = $4
		WHERE kind = $1 AND focus_id = $2 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, kind, focusID, InteractionClosed, time.Now().UTC(), InteractionOpen)
	if err != nil {
		return false, fmt.Errorf("failed to close pending interaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresRepository) RecordQueuedSubmission(ctx context.Context, submissionID, focusType, focusID string) error {
	_, err := r.CreateIfAbsent(ctx, &PendingInteraction{
		Kind:         InteractionQueuedSubmission,
		SubmissionID: submissionID,
		FocusType:    focusType,
		FocusID:      focusID,
		DedupKey:     dedupKey(InteractionQueuedSubmission, submissionID),
	})
	return err
}

func (r *PostgresRepository) RecordUnacknowledgedCommunication(ctx context.Context, submissionID, communicationID string) error {
	_, err := r.CreateIfAbsent(ctx, &PendingInteraction{
		Kind:         InteractionCommunicationAck,
		SubmissionID: submissionID,
		FocusType:    "Communication",
		FocusID:      communicationID,
		DedupKey:     dedupKey(InteractionCommunicationAck, communicationID),
	})
	return err
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInteraction(row rowScanner) (*PendingInteraction, error) {
	var interaction PendingInteraction
	var submissionID, exchangeRequestID, focusType, focusID sql.NullString

	err := row.Scan(
		&interaction.ID, &interaction.Kind, &interaction.Status,
		&submissionID, &exchangeRequestID, &focusType, &focusID,
		&interaction.DedupKey, &interaction.CreatedAt, &interaction.UpdatedAt, &interaction.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	interaction.SubmissionID = submissionID.String
	interaction.ExchangeRequestID = exchangeRequestID.String
	interaction.FocusType = focusType.String
	interaction.FocusID = focusID.String

	return &interaction, nil
}
