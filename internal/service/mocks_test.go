package service

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/race-reels/internal/compositor"
	"github.com/yourusername/race-reels/internal/models"
	"github.com/yourusername/race-reels/internal/source"
)

// MockGateway mocks the remote source
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetMetadata(ctx context.Context, fileID string) (*source.FileMetadata, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*source.FileMetadata), args.Error(1)
}

func (m *MockGateway) GetBytes(ctx context.Context, fileID string) ([]byte, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockGateway) Name() string {
	return "mock"
}

// MockExtractor mocks the bib extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, image []byte) ([]string, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockStore mocks the blob store. Download writes the key into destPath.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockStore) Download(ctx context.Context, key, destPath string) error {
	args := m.Called(ctx, key, destPath)
	if err := args.Error(0); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(key), 0o600)
}

func (m *MockStore) Bucket() string {
	return "race-photos"
}

// MockSightingLedger mocks the sighting ledger
type MockSightingLedger struct {
	mock.Mock
}

func (m *MockSightingLedger) RecordSighting(ctx context.Context, eventID, bibID, filename string) (string, error) {
	args := m.Called(ctx, eventID, bibID, filename)
	return args.String(0), args.Error(1)
}

func (m *MockSightingLedger) QuerySightings(ctx context.Context, eventID, bibID string) ([]string, error) {
	args := m.Called(ctx, eventID, bibID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockStatusLedger mocks the status ledger
type MockStatusLedger struct {
	mock.Mock
}

func (m *MockStatusLedger) MarkPending(ctx context.Context, eventID, fileID string) error {
	return m.Called(ctx, eventID, fileID).Error(0)
}

func (m *MockStatusLedger) MarkCompleted(ctx context.Context, eventID, fileID string) error {
	return m.Called(ctx, eventID, fileID).Error(0)
}

func (m *MockStatusLedger) MarkFailed(ctx context.Context, eventID, fileID string, cause error) error {
	return m.Called(ctx, eventID, fileID, cause).Error(0)
}

func (m *MockStatusLedger) Get(ctx context.Context, eventID, fileID string) (*models.IngestionJob, error) {
	args := m.Called(ctx, eventID, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IngestionJob), args.Error(1)
}

// MockCompositor mocks the compositor. On success it writes a fake video.
type MockCompositor struct {
	mock.Mock
}

func (m *MockCompositor) Composite(ctx context.Context, backgroundPath string, overlays []compositor.Overlay, outputPath string) error {
	args := m.Called(ctx, backgroundPath, overlays, outputPath)
	if err := args.Error(0); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("composited"), 0o600)
}
