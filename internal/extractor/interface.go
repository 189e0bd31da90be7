// Package extractor provides clients for the bib-number recognition service.
package extractor

import (
	"context"
	"errors"
)

// Extractor returns the bib numbers recognised in a photo. An empty result
// is a successful extraction that found nothing.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]string, error)
}

var (
	// ErrServiceUnavailable indicates the OCR service is unreachable
	ErrServiceUnavailable = errors.New("ocr service unavailable")

	// ErrInvalidResponse indicates the OCR service answered with an unusable body
	ErrInvalidResponse = errors.New("invalid response from ocr service")

	// ErrEmptyImage indicates no bytes were supplied
	ErrEmptyImage = errors.New("empty image")
)
