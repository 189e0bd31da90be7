package models

import (
	"time"
)

// Sighting records that a bib number was recognised in a photo of an event.
// Sightings are insert-only.
type Sighting struct {
	SightingID string    `db:"sighting_id" json:"sighting_id" dynamodbav:"EventImageId" validate:"required,uuid4"`
	BibID      string    `db:"bib_id" json:"bib_id" dynamodbav:"BibId" validate:"required"`
	EventID    string    `db:"event_id" json:"event_id" dynamodbav:"EventId" validate:"required,numeric"`
	Filename   string    `db:"filename" json:"filename" dynamodbav:"filename" validate:"required"`
	CreatedAt  time.Time `db:"created_at" json:"created_at" dynamodbav:"CreatedAt,omitempty"`
}

// Partition is the storage subfolder an artifact lands in.
type Partition string

// Storage partitions
const (
	PartitionProcessedImages   Partition = "ProcessedImages"
	PartitionUnprocessedImages Partition = "UnProcessedImages"
	PartitionProcessedReels    Partition = "ProcessedReels"
)

// JobStatus is the bookkeeping state of one photo ingestion.
type JobStatus string

// Job statuses
const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// IngestionJob is the status row for an (event, file) pair.
type IngestionJob struct {
	EventID   string    `db:"event_id" json:"event_id" dynamodbav:"EventId"`
	FileID    string    `db:"file_id" json:"file_id" dynamodbav:"FileId"`
	Status    JobStatus `db:"status" json:"status" dynamodbav:"Status"`
	Error     string    `db:"error" json:"error,omitempty" dynamodbav:"Error,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" dynamodbav:"UpdatedAt"`
}

// IsTerminal reports whether the job reached a final state.
func (j *IngestionJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
