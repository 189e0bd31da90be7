// Package ledger records bib sightings and ingestion job status.
package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/race-reels/internal/models"
)

// ErrIDCollision is returned when an insert-if-absent write finds a row with
// the freshly generated sighting id already present.
var ErrIDCollision = errors.New("sighting id already exists")

// SightingLedger records which bibs appear in which photos. Implementations
// must be safe for concurrent use and rely only on single-row atomicity.
type SightingLedger interface {
	// RecordSighting inserts a new sighting under a fresh id and returns it.
	RecordSighting(ctx context.Context, eventID, bibID, filename string) (string, error)

	// QuerySightings returns the filenames recorded for a bib. Order is unspecified.
	QuerySightings(ctx context.Context, eventID, bibID string) ([]string, error)
}

// StatusLedger tracks ingestion progress per (event, file). A COMPLETED row is
// never overwritten.
type StatusLedger interface {
	MarkPending(ctx context.Context, eventID, fileID string) error
	MarkCompleted(ctx context.Context, eventID, fileID string) error
	MarkFailed(ctx context.Context, eventID, fileID string, cause error) error
	Get(ctx context.Context, eventID, fileID string) (*models.IngestionJob, error)
}

func newSightingID() string {
	return uuid.NewString()
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 1024 {
		msg = strings.ToValidUTF8(msg[:1024], "")
	}
	return msg
}
