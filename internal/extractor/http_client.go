package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/httpclient"
)

// HTTPClient calls an OCR service exposing POST /extract.
type HTTPClient struct {
	client  *httpclient.Client
	baseURL string
	logger  *logrus.Entry
}

type extractResponse struct {
	Bibs []string `json:"bibs"`
}

// NewHTTPClient creates a new OCR service client
func NewHTTPClient(client *httpclient.Client, baseURL string, logger *logrus.Logger) *HTTPClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HTTPClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.WithField("component", "extractor"),
	}
}

// Extract posts the image bytes and returns the recognised bib numbers
func (c *HTTPClient) Extract(ctx context.Context, image []byte) ([]string, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	start := time.Now()

	resp, err := c.client.Post(ctx, c.baseURL+"/extract", "application/octet-stream", bytes.NewReader(image), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("extract request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	c.logger.WithFields(logrus.Fields{
		"bib_count":  len(out.Bibs),
		"image_size": len(image),
		"duration":   time.Since(start),
	}).Debug("Extraction completed")

	if out.Bibs == nil {
		return []string{}, nil
	}
	return out.Bibs, nil
}
