package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/blobstore"
	"github.com/yourusername/race-reels/internal/compositor"
	"github.com/yourusername/race-reels/internal/ledger"
	"github.com/yourusername/race-reels/internal/logger"
	"github.com/yourusername/race-reels/internal/metrics"
	"github.com/yourusername/race-reels/internal/models"
)

// ScratchDirPrefix prefixes every per-assembly scratch directory.
const ScratchDirPrefix = "reel-"

const reelContentType = "video/mp4"

// ReelService assembles one bib's reel per call. Photos are bound to
// overlay slots in lexicographic filename order.
type ReelService struct {
	sightings   ledger.SightingLedger
	store       blobstore.Store
	compositor  compositor.Compositor
	scratchRoot string
	validate    *validator.Validate
	audit       *logger.PipelineLogger
	logger      *logrus.Entry
}

// NewReelService creates a new reel service. An empty scratchRoot uses the
// system temp directory.
func NewReelService(
	sightings ledger.SightingLedger,
	store blobstore.Store,
	comp compositor.Compositor,
	scratchRoot string,
	log *logrus.Logger,
) *ReelService {
	if log == nil {
		log = logger.Discard()
	}
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &ReelService{
		sightings:   sightings,
		store:       store,
		compositor:  comp,
		scratchRoot: scratchRoot,
		validate:    validator.New(),
		audit:       logger.NewPipelineLogger(log),
		logger:      log.WithField("component", "reel"),
	}
}

// AssembleReel composites the bib's photos onto the background video and
// publishes the result under {eventId}/ProcessedReels/{bibId}.mp4.
func (s *ReelService) AssembleReel(ctx context.Context, req models.ReelRequest) (result *models.ReelResult, err error) {
	req.BibID = strings.TrimSpace(req.BibID)
	req.BackgroundKey = strings.TrimSpace(req.BackgroundKey)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	eventKey := req.EventID.String()
	fields := logrus.Fields{"event_id": eventKey, "bib_id": req.BibID}

	defer func() {
		if err != nil {
			s.audit.LogStepFailed(string(models.KindOf(err)), opOf(err), fields, err)
		}
	}()

	filenames, err := s.sightings.QuerySightings(ctx, eventKey, req.BibID)
	if err != nil {
		return nil, ledgerError("query_sightings", err)
	}
	filenames = BindingOrder(filenames)

	if len(filenames) < len(req.Overlays) {
		return nil, &models.PipelineError{
			Kind:    models.KindInsufficientMaterial,
			Op:      "check_material",
			Message: fmt.Sprintf("found %d photos for %d overlay slots", len(filenames), len(req.Overlays)),
		}
	}

	scratch, err := s.makeScratchDir(eventKey, req.BibID)
	if err != nil {
		return nil, models.NewPipelineError(models.KindMaterialFetchFailed, "create_scratch", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			s.logger.WithError(rmErr).WithField("path", scratch).Warn("Failed to remove scratch directory")
		}
	}()

	backgroundPath := filepath.Join(scratch, "background"+extOr(req.BackgroundKey, ".mp4"))
	if err := s.store.Download(ctx, req.BackgroundKey, backgroundPath); err != nil {
		return nil, models.NewPipelineError(models.KindMaterialFetchFailed, "fetch_background", err)
	}

	overlays := make([]compositor.Overlay, len(req.Overlays))
	for i, placement := range req.Overlays {
		filename := filenames[i]
		localPath := filepath.Join(scratch, fmt.Sprintf("overlay-%03d%s", i, extOr(filename, ".jpg")))
		key := blobstore.PhotoKey(eventKey, models.PartitionProcessedImages, filename)
		if err := s.store.Download(ctx, key, localPath); err != nil {
			return nil, models.NewPipelineError(models.KindMaterialFetchFailed, "fetch_photo", err)
		}
		overlays[i] = compositor.Overlay{ImagePath: localPath, Placement: placement}
	}

	outputPath := filepath.Join(scratch, "reel"+blobstore.ReelExtension)
	if err := s.compositor.Composite(ctx, backgroundPath, overlays, outputPath); err != nil {
		return nil, models.NewPipelineError(models.KindCompositionFailed, "composite", err)
	}

	video, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, models.NewPipelineError(models.KindCompositionFailed, "read_output", err)
	}

	reelKey := blobstore.ReelKey(eventKey, req.BibID)
	if err := s.store.Put(ctx, reelKey, video, reelContentType); err != nil {
		return nil, models.NewPipelineError(models.KindPublishFailed, "publish_reel", err)
	}

	metrics.RecordReelPublished(time.Since(start).Seconds())
	s.audit.LogReelPublished(eventKey, req.BibID, s.store.Bucket(), reelKey, len(overlays))

	return &models.ReelResult{
		EventID: eventKey,
		BibID:   req.BibID,
		Bucket:  s.store.Bucket(),
		ReelKey: reelKey,
		OK:      true,
	}, nil
}

func (s *ReelService) validateRequest(req models.ReelRequest) error {
	if req.BibID == "" {
		return models.InvalidInputf("missing bib id")
	}
	if err := blobstore.ValidateKeySegment(req.BibID); err != nil {
		return models.InvalidInputf("invalid bib id: %v", err)
	}
	if req.BackgroundKey == "" {
		return models.InvalidInputf("missing background video key")
	}
	if err := s.validate.Struct(req); err != nil {
		return models.InvalidInputf("invalid reel request: %v", err)
	}
	return nil
}

func (s *ReelService) makeScratchDir(eventID, bibID string) (string, error) {
	if err := os.MkdirAll(s.scratchRoot, 0o750); err != nil {
		return "", fmt.Errorf("failed to create scratch root: %w", err)
	}
	dir := filepath.Join(s.scratchRoot, fmt.Sprintf("%s%s-%s-%s", ScratchDirPrefix, eventID, bibID, uuid.NewString()))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

// BindingOrder returns the distinct filenames in the order they are bound to
// overlay slots.
func BindingOrder(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// extOr returns the extension of name, or fallback when it has none.
func extOr(name, fallback string) string {
	ext := filepath.Ext(name)
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return fallback
	}
	return ext
}
