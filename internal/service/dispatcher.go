package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/logger"
	"github.com/yourusername/race-reels/internal/metrics"
	"github.com/yourusername/race-reels/internal/models"
)

// Ingester processes one photo.
type Ingester interface {
	Ingest(ctx context.Context, eventID interface{}, fileID string) (*models.IngestResult, error)
}

// ReelAssembler builds one reel.
type ReelAssembler interface {
	AssembleReel(ctx context.Context, req models.ReelRequest) (*models.ReelResult, error)
}

// Dispatcher routes requests by kind.
type Dispatcher struct {
	ingester  Ingester
	assembler ReelAssembler
	validate  *validator.Validate
	logger    *logrus.Entry
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(ingester Ingester, assembler ReelAssembler, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{
		ingester:  ingester,
		assembler: assembler,
		validate:  validator.New(),
		logger:    log.WithField("component", "dispatcher"),
	}
}

// DispatchJSON decodes a raw request body and dispatches it
func (d *Dispatcher) DispatchJSON(ctx context.Context, body []byte) (interface{}, error) {
	var req models.Request
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		err = models.InvalidInputf("malformed request: %v", err)
		metrics.RecordPipelineError("unknown", string(models.KindInvalidInput))
		return nil, err
	}
	return d.Dispatch(ctx, &req)
}

// Dispatch routes req to ingestion or reel assembly. Every error returned
// carries a models.ErrorKind.
func (d *Dispatcher) Dispatch(ctx context.Context, req *models.Request) (interface{}, error) {
	kind := req.RequestKindOrAlias()
	log := d.logger.WithFields(logrus.Fields{
		"request_kind": kind,
		"event_id":     string(req.EventID),
	})

	var (
		result interface{}
		err    error
	)
	switch kind {
	case models.RequestProcessImages:
		result, err = d.ingester.Ingest(ctx, req.EventID, req.FileID)
	case models.RequestGenerateReel:
		var reelReq models.ReelRequest
		reelReq, err = d.buildReelRequest(req)
		if err == nil {
			result, err = d.assembler.AssembleReel(ctx, reelReq)
		}
	default:
		err = &models.PipelineError{
			Kind:    models.KindInvalidRequestKind,
			Op:      "dispatch",
			Message: "unsupported request kind " + quoteKind(kind),
		}
	}

	if err != nil {
		errKind := models.KindOf(err)
		metrics.RecordPipelineError(metricKind(kind), string(errKind))
		log.WithError(err).WithField("error_kind", errKind).Warn("Request failed")
		return nil, err
	}

	log.Debug("Request completed")
	return result, nil
}

func (d *Dispatcher) buildReelRequest(req *models.Request) (models.ReelRequest, error) {
	eventID, err := models.ParseEventID(req.EventID)
	if err != nil {
		return models.ReelRequest{}, err
	}

	bibID := strings.TrimSpace(string(req.Item))
	if bibID == "" {
		return models.ReelRequest{}, models.InvalidInputf("missing item")
	}
	backgroundKey := strings.TrimSpace(req.ReelS3Key)
	if backgroundKey == "" {
		return models.ReelRequest{}, models.InvalidInputf("missing reelS3Key")
	}
	if strings.TrimSpace(req.ReelConfiguration) == "" {
		return models.ReelRequest{}, models.InvalidInputf("missing reelConfiguration")
	}

	var cfg models.ReelConfiguration
	if err := json.Unmarshal([]byte(req.ReelConfiguration), &cfg); err != nil {
		return models.ReelRequest{}, models.InvalidInputf("malformed reelConfiguration: %v", err)
	}
	if err := d.validate.Struct(cfg); err != nil {
		return models.ReelRequest{}, models.InvalidInputf("invalid reelConfiguration: %v", err)
	}

	return models.ReelRequest{
		EventID:       eventID,
		BibID:         bibID,
		BackgroundKey: backgroundKey,
		Overlays:      cfg.Overlays,
	}, nil
}

func quoteKind(kind models.RequestKind) string {
	if kind == "" {
		return "(missing)"
	}
	return `"` + string(kind) + `"`
}

// metricKind bounds the request_kind label to known values.
func metricKind(kind models.RequestKind) string {
	switch kind {
	case models.RequestProcessImages, models.RequestGenerateReel:
		return string(kind)
	default:
		return "unknown"
	}
}
