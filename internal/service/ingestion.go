// Package service implements the photo ingestion and reel assembly pipelines
// and the dispatcher that routes requests between them.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/blobstore"
	"github.com/yourusername/race-reels/internal/extractor"
	"github.com/yourusername/race-reels/internal/ledger"
	"github.com/yourusername/race-reels/internal/logger"
	"github.com/yourusername/race-reels/internal/metrics"
	"github.com/yourusername/race-reels/internal/models"
	"github.com/yourusername/race-reels/internal/source"
)

const defaultContentType = "application/octet-stream"

// IngestionService stores one photo per call and records a sighting for
// every bib the extractor finds in it. It keeps no per-call state.
type IngestionService struct {
	source    source.Gateway
	extractor extractor.Extractor
	store     blobstore.Store
	sightings ledger.SightingLedger
	status    ledger.StatusLedger
	audit     *logger.PipelineLogger
	logger    *logrus.Entry
}

// NewIngestionService creates a new ingestion service. status may be nil.
func NewIngestionService(
	src source.Gateway,
	ext extractor.Extractor,
	store blobstore.Store,
	sightings ledger.SightingLedger,
	status ledger.StatusLedger,
	log *logrus.Logger,
) *IngestionService {
	if log == nil {
		log = logger.Discard()
	}
	return &IngestionService{
		source:    src,
		extractor: ext,
		store:     store,
		sightings: sightings,
		status:    status,
		audit:     logger.NewPipelineLogger(log),
		logger:    log.WithField("component", "ingestion"),
	}
}

// Ingest fetches fileID, stores it under the partition its extraction
// outcome selects and records its sightings. eventID may be a number or a
// numeric string.
func (s *IngestionService) Ingest(ctx context.Context, eventID interface{}, fileID string) (result *models.IngestResult, err error) {
	event, err := models.ParseEventID(eventID)
	if err != nil {
		return nil, err
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, models.InvalidInputf("missing fileId")
	}

	start := time.Now()
	eventKey := event.String()
	log := s.logger.WithFields(logrus.Fields{"event_id": eventKey, "file_id": fileID})

	s.trackPending(ctx, eventKey, fileID)
	defer func() {
		if err != nil {
			s.audit.LogStepFailed(string(models.KindOf(err)), opOf(err), logrus.Fields{
				"event_id": eventKey,
				"file_id":  fileID,
			}, err)
			s.trackFailed(ctx, eventKey, fileID, err)
			return
		}
		s.trackCompleted(ctx, eventKey, fileID)
	}()

	meta, err := s.source.GetMetadata(ctx, fileID)
	if err != nil {
		return nil, models.NewPipelineError(models.KindSourceFetchFailed, "fetch_metadata", err)
	}
	data, err := s.source.GetBytes(ctx, fileID)
	if err != nil {
		return nil, models.NewPipelineError(models.KindSourceFetchFailed, "fetch_bytes", err)
	}

	filename, err := s.resolveFilename(meta, fileID)
	if err != nil {
		return nil, models.NewPipelineError(models.KindSourceFetchFailed, "resolve_filename", err)
	}

	bibs, extractErr := s.extractor.Extract(ctx, data)
	if extractErr != nil {
		s.audit.LogExtractionRecovered(eventKey, fileID, extractErr)
		metrics.RecordExtractionFailure()
		bibs = nil
	}
	bibs = normalizeBibs(bibs)

	partition := models.PartitionUnprocessedImages
	if len(bibs) > 0 {
		partition = models.PartitionProcessedImages
	}

	contentType := meta.MimeType
	if contentType == "" {
		contentType = defaultContentType
	}

	key := blobstore.PhotoKey(eventKey, partition, filename)
	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		return nil, models.NewPipelineError(models.KindStoreFailed, "store_photo", err)
	}
	s.audit.LogPhotoStored(eventKey, fileID, s.store.Bucket(), key, len(bibs))

	for _, bib := range bibs {
		id, err := s.sightings.RecordSighting(ctx, eventKey, bib, filename)
		if err != nil {
			return nil, ledgerError("record_sighting", err)
		}
		metrics.RecordSighting()
		s.audit.LogSightingRecorded(id, eventKey, bib, filename)
	}

	metrics.RecordPhotoIngested(string(partition), time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"partition": partition,
		"bib_count": len(bibs),
		"duration":  time.Since(start),
	}).Info("Photo ingested")

	return &models.IngestResult{
		EventID: eventKey,
		FileID:  fileID,
		Bucket:  s.store.Bucket(),
		Key:     key,
		OK:      true,
	}, nil
}

// resolveFilename sanitises the declared name, falling back to the file id
// so a fetched photo is always storable.
func (s *IngestionService) resolveFilename(meta *source.FileMetadata, fileID string) (string, error) {
	name, err := blobstore.SanitizeFilename(meta.Name)
	if err == nil {
		return name, nil
	}
	s.logger.WithError(err).WithField("file_id", fileID).Warn("Unusable source filename, falling back to file id")
	return blobstore.SanitizeFilename(fileID)
}

func (s *IngestionService) trackPending(ctx context.Context, eventID, fileID string) {
	if s.status == nil {
		return
	}
	if err := s.status.MarkPending(ctx, eventID, fileID); err != nil {
		s.logger.WithError(err).Warn("Failed to mark ingestion pending")
	}
}

func (s *IngestionService) trackCompleted(ctx context.Context, eventID, fileID string) {
	if s.status == nil {
		return
	}
	if err := s.status.MarkCompleted(ctx, eventID, fileID); err != nil {
		s.logger.WithError(err).Warn("Failed to mark ingestion completed")
	}
}

func (s *IngestionService) trackFailed(ctx context.Context, eventID, fileID string, cause error) {
	if s.status == nil {
		return
	}
	if err := s.status.MarkFailed(ctx, eventID, fileID, cause); err != nil {
		s.logger.WithError(err).Warn("Failed to mark ingestion failed")
	}
}

// normalizeBibs trims, drops empties and removes duplicates, keeping first-seen order.
func normalizeBibs(bibs []string) []string {
	seen := make(map[string]struct{}, len(bibs))
	out := make([]string, 0, len(bibs))
	for _, b := range bibs {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

func ledgerError(op string, err error) error {
	if errors.Is(err, ledger.ErrIDCollision) {
		return models.NewPipelineError(models.KindIDCollision, op, err)
	}
	return models.NewPipelineError(models.KindLedgerFailed, op, err)
}

func opOf(err error) string {
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return pe.Op
	}
	return ""
}
