// Package logger provides pipeline audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PipelineLogger records the durable side effects of each pipeline step.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogPhotoStored logs a photo written to a partition.
func (pl *PipelineLogger) LogPhotoStored(eventID, fileID, bucket, key string, bibCount int) {
	pl.WithFields(logrus.Fields{
		"event_id":  eventID,
		"file_id":   fileID,
		"bucket":    bucket,
		"key":       key,
		"bib_count": bibCount,
	}).Info("Photo stored")
}

// LogSightingRecorded logs a new ledger row.
func (pl *PipelineLogger) LogSightingRecorded(sightingID, eventID, bibID, filename string) {
	pl.WithFields(logrus.Fields{
		"sighting_id": sightingID,
		"event_id":    eventID,
		"bib_id":      bibID,
		"filename":    filename,
	}).Info("Sighting recorded")
}

// LogExtractionRecovered logs an extractor failure that was downgraded to zero bibs.
func (pl *PipelineLogger) LogExtractionRecovered(eventID, fileID string, err error) {
	pl.WithFields(logrus.Fields{
		"event_id":   eventID,
		"file_id":    fileID,
		"error_kind": "ExtractionFailed",
	}).WithError(err).Warn("Bib extraction failed, storing photo as unprocessed")
}

// LogReelPublished logs a published reel.
func (pl *PipelineLogger) LogReelPublished(eventID, bibID, bucket, key string, overlayCount int) {
	pl.WithFields(logrus.Fields{
		"event_id":      eventID,
		"bib_id":        bibID,
		"bucket":        bucket,
		"key":           key,
		"overlay_count": overlayCount,
	}).Info("Reel published")
}

// LogStepFailed logs a step failure that is about to propagate to the caller.
func (pl *PipelineLogger) LogStepFailed(kind, op string, fields logrus.Fields, err error) {
	pl.WithFields(fields).WithFields(logrus.Fields{
		"error_kind": kind,
		"op":         op,
	}).WithError(err).Error("Pipeline step failed")
}
