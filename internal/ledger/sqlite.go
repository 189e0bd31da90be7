package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/race-reels/internal/models"
)

// SQLiteSightingLedger implements SightingLedger on a local SQLite file.
type SQLiteSightingLedger struct {
	db    *sql.DB
	newID func() string
}

// NewSQLiteSightingLedger creates a ledger on an opened, migrated database
func NewSQLiteSightingLedger(db *sql.DB) *SQLiteSightingLedger {
	return &SQLiteSightingLedger{db: db, newID: newSightingID}
}

// RecordSighting inserts a sighting; an existing row with the same id is a collision
func (l *SQLiteSightingLedger) RecordSighting(ctx context.Context, eventID, bibID, filename string) (string, error) {
	id := l.newID()
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO sightings (sighting_id, event_id, bib_id, filename, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (sighting_id) DO NOTHING`,
		id, eventID, bibID, filename, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert sighting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s", ErrIDCollision, id)
	}
	return id, nil
}

// QuerySightings returns the filenames recorded for a bib
func (l *SQLiteSightingLedger) QuerySightings(ctx context.Context, eventID, bibID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT filename FROM sightings WHERE event_id = ? AND bib_id = ?`, eventID, bibID)
	if err != nil {
		return nil, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()

	filenames := make([]string, 0)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		filenames = append(filenames, filename)
	}
	return filenames, rows.Err()
}

// SQLiteStatusLedger implements StatusLedger on a local SQLite file.
type SQLiteStatusLedger struct {
	db *sql.DB
}

// NewSQLiteStatusLedger creates a status ledger on an opened, migrated database
func NewSQLiteStatusLedger(db *sql.DB) *SQLiteStatusLedger {
	return &SQLiteStatusLedger{db: db}
}

// MarkPending records that ingestion started
func (l *SQLiteStatusLedger) MarkPending(ctx context.Context, eventID, fileID string) error {
	return l.upsert(ctx, eventID, fileID, models.JobStatusPending, "")
}

// MarkCompleted records a successful ingestion
func (l *SQLiteStatusLedger) MarkCompleted(ctx context.Context, eventID, fileID string) error {
	return l.upsert(ctx, eventID, fileID, models.JobStatusCompleted, "")
}

// MarkFailed records a failed ingestion unless it already completed
func (l *SQLiteStatusLedger) MarkFailed(ctx context.Context, eventID, fileID string, cause error) error {
	return l.upsert(ctx, eventID, fileID, models.JobStatusFailed, errorText(cause))
}

func (l *SQLiteStatusLedger) upsert(ctx context.Context, eventID, fileID string, status models.JobStatus, errMsg string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ingestion_jobs (event_id, file_id, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (event_id, file_id) DO UPDATE
		SET status = excluded.status, error = excluded.error, updated_at = excluded.updated_at
		WHERE ingestion_jobs.status <> 'COMPLETED'`,
		eventID, fileID, string(status), errMsg, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("update ingestion status: %w", err)
	}
	return nil
}

// Get retrieves the status row for an (event, file) pair
func (l *SQLiteStatusLedger) Get(ctx context.Context, eventID, fileID string) (*models.IngestionJob, error) {
	job := &models.IngestionJob{}
	var status, updatedAt string
	err := l.db.QueryRowContext(ctx,
		`SELECT event_id, file_id, status, error, updated_at
		FROM ingestion_jobs WHERE event_id = ? AND file_id = ?`, eventID, fileID,
	).Scan(&job.EventID, &job.FileID, &status, &job.Error, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ingestion status: %w", err)
	}
	job.Status = models.JobStatus(status)
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		job.UpdatedAt = ts
	}
	return job, nil
}
