package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/race-reels/internal/ledger"
	"github.com/yourusername/race-reels/internal/models"
	"github.com/yourusername/race-reels/internal/source"
)

type ingestionFixture struct {
	source    *MockGateway
	extractor *MockExtractor
	store     *MockStore
	sightings *MockSightingLedger
	svc       *IngestionService
}

func newIngestionFixture(status ledger.StatusLedger) *ingestionFixture {
	f := &ingestionFixture{
		source:    new(MockGateway),
		extractor: new(MockExtractor),
		store:     new(MockStore),
		sightings: new(MockSightingLedger),
	}
	f.svc = NewIngestionService(f.source, f.extractor, f.store, f.sightings, status, nil)
	return f
}

func (f *ingestionFixture) expectFetch(fileID, name string, data []byte) {
	f.source.On("GetMetadata", mock.Anything, fileID).Return(&source.FileMetadata{Name: name, MimeType: "image/jpeg"}, nil)
	f.source.On("GetBytes", mock.Anything, fileID).Return(data, nil)
}

// Scenario A
func TestIngestRecordsSightingPerBib(t *testing.T) {
	f := newIngestionFixture(nil)
	photo := []byte("jpeg")
	f.expectFetch("fileA", "IMG_0001.jpg", photo)
	f.extractor.On("Extract", mock.Anything, photo).Return([]string{"231", "559"}, nil)
	f.store.On("Put", mock.Anything, "1001/ProcessedImages/IMG_0001.jpg", photo, "image/jpeg").Return(nil).Once()
	f.sightings.On("RecordSighting", mock.Anything, "1001", "231", "IMG_0001.jpg").Return("id-1", nil).Once()
	f.sightings.On("RecordSighting", mock.Anything, "1001", "559", "IMG_0001.jpg").Return("id-2", nil).Once()

	result, err := f.svc.Ingest(context.Background(), 1001, "fileA")
	require.NoError(t, err)

	assert.Equal(t, &models.IngestResult{
		EventID: "1001",
		FileID:  "fileA",
		Bucket:  "race-photos",
		Key:     "1001/ProcessedImages/IMG_0001.jpg",
		OK:      true,
	}, result)
	f.store.AssertNumberOfCalls(t, "Put", 1)
	f.sightings.AssertNumberOfCalls(t, "RecordSighting", 2)
	f.sightings.AssertExpectations(t)
}

// Scenario B
func TestIngestWithoutBibsStoresUnprocessed(t *testing.T) {
	f := newIngestionFixture(nil)
	photo := []byte("jpeg")
	f.expectFetch("fileB", "IMG_0002.jpg", photo)
	f.extractor.On("Extract", mock.Anything, photo).Return([]string{}, nil)
	f.store.On("Put", mock.Anything, "1001/UnProcessedImages/IMG_0002.jpg", photo, "image/jpeg").Return(nil).Once()

	result, err := f.svc.Ingest(context.Background(), "1001", "fileB")
	require.NoError(t, err)
	assert.Equal(t, "1001/UnProcessedImages/IMG_0002.jpg", result.Key)
	assert.True(t, result.OK)
	f.sightings.AssertNotCalled(t, "RecordSighting", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestExtractionFailureStillStoresPhoto(t *testing.T) {
	f := newIngestionFixture(nil)
	photo := []byte("jpeg")
	f.expectFetch("fileC", "IMG_0003.jpg", photo)
	f.extractor.On("Extract", mock.Anything, photo).Return(nil, errors.New("ocr crashed"))
	f.store.On("Put", mock.Anything, "1001/UnProcessedImages/IMG_0003.jpg", photo, "image/jpeg").Return(nil).Once()

	result, err := f.svc.Ingest(context.Background(), "1001", "fileC")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "1001/UnProcessedImages/IMG_0003.jpg", result.Key)
	f.sightings.AssertNotCalled(t, "RecordSighting", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestStoresInExactlyOnePartition(t *testing.T) {
	outcomes := []struct {
		name      string
		bibs      []string
		err       error
		partition string
	}{
		{name: "bibs found", bibs: []string{"7"}, partition: "ProcessedImages"},
		{name: "no bibs", bibs: []string{}, partition: "UnProcessedImages"},
		{name: "blank bibs only", bibs: []string{" ", ""}, partition: "UnProcessedImages"},
		{name: "extractor error", err: errors.New("boom"), partition: "UnProcessedImages"},
	}

	for _, tt := range outcomes {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestionFixture(nil)
			photo := []byte("jpeg")
			f.expectFetch("file", "p.jpg", photo)
			if tt.err != nil {
				f.extractor.On("Extract", mock.Anything, photo).Return(nil, tt.err)
			} else {
				f.extractor.On("Extract", mock.Anything, photo).Return(tt.bibs, nil)
			}
			f.store.On("Put", mock.Anything, mock.Anything, photo, "image/jpeg").Return(nil)
			f.sightings.On("RecordSighting", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("id", nil)

			result, err := f.svc.Ingest(context.Background(), 5, "file")
			require.NoError(t, err)

			f.store.AssertNumberOfCalls(t, "Put", 1)
			assert.Equal(t, fmt.Sprintf("5/%s/p.jpg", tt.partition), result.Key)
		})
	}
}

func TestIngestDeduplicatesBibs(t *testing.T) {
	f := newIngestionFixture(nil)
	photo := []byte("jpeg")
	f.expectFetch("fileA", "a.jpg", photo)
	f.extractor.On("Extract", mock.Anything, photo).Return([]string{"231", " 231 ", "559", ""}, nil)
	f.store.On("Put", mock.Anything, mock.Anything, photo, "image/jpeg").Return(nil)
	f.sightings.On("RecordSighting", mock.Anything, "1001", "231", "a.jpg").Return("id-1", nil).Once()
	f.sightings.On("RecordSighting", mock.Anything, "1001", "559", "a.jpg").Return("id-2", nil).Once()

	_, err := f.svc.Ingest(context.Background(), 1001, "fileA")
	require.NoError(t, err)
	f.sightings.AssertNumberOfCalls(t, "RecordSighting", 2)
}

func TestIngestRejectsInvalidInputWithoutIO(t *testing.T) {
	tests := []struct {
		name    string
		eventID interface{}
		fileID  string
	}{
		{name: "non numeric event", eventID: "abc", fileID: "file1"},
		{name: "missing event", eventID: nil, fileID: "file1"},
		{name: "missing file", eventID: "1001", fileID: ""},
		{name: "blank file", eventID: 1001, fileID: "   "},
		{name: "fractional event", eventID: 10.5, fileID: "file1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestionFixture(nil)

			_, err := f.svc.Ingest(context.Background(), tt.eventID, tt.fileID)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.KindInvalidInput)
			f.source.AssertNotCalled(t, "GetMetadata", mock.Anything, mock.Anything)
			f.source.AssertNotCalled(t, "GetBytes", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestSourceFailureStoresNothing(t *testing.T) {
	f := newIngestionFixture(nil)
	f.source.On("GetMetadata", mock.Anything, "missing").Return(nil, source.ErrNotFound)

	_, err := f.svc.Ingest(context.Background(), 1001, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.KindSourceFetchFailed)
	assert.ErrorIs(t, err, source.ErrNotFound)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestIngestLedgerFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind models.ErrorKind
	}{
		{name: "collision", err: fmt.Errorf("%w: abc", ledger.ErrIDCollision), kind: models.KindIDCollision},
		{name: "store down", err: errors.New("connection refused"), kind: models.KindLedgerFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestionFixture(nil)
			photo := []byte("jpeg")
			f.expectFetch("fileA", "a.jpg", photo)
			f.extractor.On("Extract", mock.Anything, photo).Return([]string{"231"}, nil)
			f.store.On("Put", mock.Anything, "1001/ProcessedImages/a.jpg", photo, "image/jpeg").Return(nil)
			f.sightings.On("RecordSighting", mock.Anything, "1001", "231", "a.jpg").Return("", tt.err)

			_, err := f.svc.Ingest(context.Background(), 1001, "fileA")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			// photo stays stored
			f.store.AssertNumberOfCalls(t, "Put", 1)
		})
	}
}

func TestIngestStoreFailure(t *testing.T) {
	f := newIngestionFixture(nil)
	photo := []byte("jpeg")
	f.expectFetch("fileA", "a.jpg", photo)
	f.extractor.On("Extract", mock.Anything, photo).Return([]string{"231"}, nil)
	f.store.On("Put", mock.Anything, mock.Anything, photo, "image/jpeg").Return(errors.New("access denied"))

	_, err := f.svc.Ingest(context.Background(), 1001, "fileA")
	assert.ErrorIs(t, err, models.KindStoreFailed)
	f.sightings.AssertNotCalled(t, "RecordSighting", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestSanitizesFilename(t *testing.T) {
	f := newIngestionFixture(nil)
	photo := []byte("jpeg")
	f.source.On("GetMetadata", mock.Anything, "fileA").Return(&source.FileMetadata{Name: "../../IMG_9", MimeType: "image/jpeg"}, nil)
	f.source.On("GetBytes", mock.Anything, "fileA").Return(photo, nil)
	f.extractor.On("Extract", mock.Anything, photo).Return([]string{"231"}, nil)
	f.store.On("Put", mock.Anything, "1001/ProcessedImages/IMG_9", photo, "image/jpeg").Return(nil)
	f.sightings.On("RecordSighting", mock.Anything, "1001", "231", "IMG_9").Return("id", nil)

	result, err := f.svc.Ingest(context.Background(), 1001, "fileA")
	require.NoError(t, err)
	assert.Equal(t, "1001/ProcessedImages/IMG_9", result.Key)
}

func TestIngestKeepsNameWithoutExtension(t *testing.T) {
	f := newIngestionFixture(nil)
	photo := []byte("jpeg")
	f.source.On("GetMetadata", mock.Anything, "fileA").Return(&source.FileMetadata{Name: "IMG_0001", MimeType: "image/jpeg"}, nil)
	f.source.On("GetBytes", mock.Anything, "fileA").Return(photo, nil)
	f.extractor.On("Extract", mock.Anything, photo).Return([]string{"231"}, nil)
	f.store.On("Put", mock.Anything, "1001/ProcessedImages/IMG_0001", photo, "image/jpeg").Return(nil)
	f.sightings.On("RecordSighting", mock.Anything, "1001", "231", "IMG_0001").Return("id", nil)

	result, err := f.svc.Ingest(context.Background(), 1001, "fileA")
	require.NoError(t, err)
	assert.Equal(t, "1001/ProcessedImages/IMG_0001", result.Key)
	f.sightings.AssertExpectations(t)
}

func TestIngestFallsBackToFileIDForUnusableName(t *testing.T) {
	f := newIngestionFixture(nil)
	photo := []byte("png")
	f.source.On("GetMetadata", mock.Anything, "fileZ").Return(&source.FileMetadata{Name: "..", MimeType: "image/png"}, nil)
	f.source.On("GetBytes", mock.Anything, "fileZ").Return(photo, nil)
	f.extractor.On("Extract", mock.Anything, photo).Return([]string{}, nil)
	f.store.On("Put", mock.Anything, "1001/UnProcessedImages/fileZ", photo, "image/png").Return(nil)

	result, err := f.svc.Ingest(context.Background(), 1001, "fileZ")
	require.NoError(t, err)
	assert.Equal(t, "1001/UnProcessedImages/fileZ", result.Key)
}

func TestIngestStatusTracking(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		status := new(MockStatusLedger)
		status.On("MarkPending", mock.Anything, "1001", "fileA").Return(nil).Once()
		status.On("MarkCompleted", mock.Anything, "1001", "fileA").Return(nil).Once()

		f := newIngestionFixture(status)
		photo := []byte("jpeg")
		f.expectFetch("fileA", "a.jpg", photo)
		f.extractor.On("Extract", mock.Anything, photo).Return([]string{}, nil)
		f.store.On("Put", mock.Anything, mock.Anything, photo, "image/jpeg").Return(nil)

		_, err := f.svc.Ingest(context.Background(), 1001, "fileA")
		require.NoError(t, err)
		status.AssertExpectations(t)
		status.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failure", func(t *testing.T) {
		status := new(MockStatusLedger)
		status.On("MarkPending", mock.Anything, "1001", "fileA").Return(nil).Once()
		status.On("MarkFailed", mock.Anything, "1001", "fileA", mock.Anything).Return(nil).Once()

		f := newIngestionFixture(status)
		f.source.On("GetMetadata", mock.Anything, "fileA").Return(nil, errors.New("timeout"))

		_, err := f.svc.Ingest(context.Background(), 1001, "fileA")
		require.Error(t, err)
		status.AssertExpectations(t)
	})

	t.Run("tracker errors do not change the outcome", func(t *testing.T) {
		status := new(MockStatusLedger)
		status.On("MarkPending", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("table missing"))
		status.On("MarkCompleted", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("table missing"))

		f := newIngestionFixture(status)
		photo := []byte("jpeg")
		f.expectFetch("fileA", "a.jpg", photo)
		f.extractor.On("Extract", mock.Anything, photo).Return([]string{}, nil)
		f.store.On("Put", mock.Anything, mock.Anything, photo, "image/jpeg").Return(nil)

		result, err := f.svc.Ingest(context.Background(), 1001, "fileA")
		require.NoError(t, err)
		assert.True(t, result.OK)
	})
}
