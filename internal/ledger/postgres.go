package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/race-reels/internal/database"
	"github.com/yourusername/race-reels/internal/models"
)

// PostgresSightingLedger implements SightingLedger for PostgreSQL
type PostgresSightingLedger struct {
	db    *database.DB
	newID func() string
}

// NewPostgresSightingLedger creates a new sighting ledger
func NewPostgresSightingLedger(db *database.DB) *PostgresSightingLedger {
	return &PostgresSightingLedger{db: db, newID: newSightingID}
}

// RecordSighting inserts a sighting; an existing row with the same id is a collision
func (l *PostgresSightingLedger) RecordSighting(ctx context.Context, eventID, bibID, filename string) (string, error) {
	id := l.newID()
	query := `
		INSERT INTO sightings (sighting_id, event_id, bib_id, filename, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sighting_id) DO NOTHING
	`

	tag, err := l.db.GetPool().Exec(ctx, query, id, eventID, bibID, filename, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to record sighting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("%w: %s", ErrIDCollision, id)
	}
	return id, nil
}

// QuerySightings retrieves filenames for a bib through the event index
func (l *PostgresSightingLedger) QuerySightings(ctx context.Context, eventID, bibID string) ([]string, error) {
	query := `SELECT filename FROM sightings WHERE event_id = $1 AND bib_id = $2`

	rows, err := l.db.GetPool().Query(ctx, query, eventID, bibID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	filenames := make([]string, 0)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		filenames = append(filenames, filename)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sightings: %w", err)
	}
	return filenames, nil
}

// PostgresStatusLedger implements StatusLedger for PostgreSQL
type PostgresStatusLedger struct {
	db *database.DB
}

// NewPostgresStatusLedger creates a new status ledger
func NewPostgresStatusLedger(db *database.DB) *PostgresStatusLedger {
	return &PostgresStatusLedger{db: db}
}

// MarkPending records that ingestion started
func (l *PostgresStatusLedger) MarkPending(ctx context.Context, eventID, fileID string) error {
	return l.upsert(ctx, eventID, fileID, models.JobStatusPending, "")
}

// MarkCompleted records a successful ingestion
func (l *PostgresStatusLedger) MarkCompleted(ctx context.Context, eventID, fileID string) error {
	return l.upsert(ctx, eventID, fileID, models.JobStatusCompleted, "")
}

// MarkFailed records a failed ingestion unless it already completed
func (l *PostgresStatusLedger) MarkFailed(ctx context.Context, eventID, fileID string, cause error) error {
	return l.upsert(ctx, eventID, fileID, models.JobStatusFailed, errorText(cause))
}

func (l *PostgresStatusLedger) upsert(ctx context.Context, eventID, fileID string, status models.JobStatus, errMsg string) error {
	query := `
		INSERT INTO ingestion_jobs (event_id, file_id, status, error, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, file_id) DO UPDATE
		SET status = EXCLUDED.status, error = EXCLUDED.error, updated_at = EXCLUDED.updated_at
		WHERE ingestion_jobs.status <> 'COMPLETED'
	`

	if _, err := l.db.GetPool().Exec(ctx, query, eventID, fileID, string(status), errMsg, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update ingestion status: %w", err)
	}
	return nil
}

// Get retrieves the status row for an (event, file) pair
func (l *PostgresStatusLedger) Get(ctx context.Context, eventID, fileID string) (*models.IngestionJob, error) {
	query := `
		SELECT event_id, file_id, status, error, updated_at
		FROM ingestion_jobs WHERE event_id = $1 AND file_id = $2
	`

	job := &models.IngestionJob{}
	var status string
	err := l.db.GetPool().QueryRow(ctx, query, eventID, fileID).Scan(
		&job.EventID, &job.FileID, &status, &job.Error, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion status: %w", err)
	}
	job.Status = models.JobStatus(status)
	return job, nil
}
