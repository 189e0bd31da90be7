package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/race-reels/internal/models"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "1001/ProcessedImages/IMG_1.jpg", PhotoKey("1001", models.PartitionProcessedImages, "IMG_1.jpg"))
	assert.Equal(t, "1001/UnProcessedImages/IMG_1.jpg", PhotoKey("1001", models.PartitionUnprocessedImages, "IMG_1.jpg"))
	assert.Equal(t, "1001/ProcessedReels/231.mp4", ReelKey("1001", "231"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "IMG_0001.jpg", want: "IMG_0001.jpg"},
		{name: "strips directories", input: "../../etc/passwd", want: "passwd"},
		{name: "strips windows directories", input: `C:\photos\IMG_2.png`, want: "IMG_2.png"},
		{name: "strips control characters", input: "IMG\n_3.jpg", want: "IMG_3.jpg"},
		{name: "keeps name without extension", input: "IMG_0004", want: "IMG_0004"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "dot dot", input: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStorePutAndDownload(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "race-photos")
	require.NoError(t, err)
	assert.Equal(t, "race-photos", store.Bucket())

	key := PhotoKey("1001", models.PartitionProcessedImages, "a.jpg")
	require.NoError(t, store.Put(ctx, key, []byte("first"), "image/jpeg"))
	require.NoError(t, store.Put(ctx, key, []byte("second"), "image/jpeg"))

	dest := filepath.Join(t.TempDir(), "nested", "a.jpg")
	require.NoError(t, store.Download(ctx, key, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStoreErrors(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "race-photos")
	require.NoError(t, err)

	err = store.Download(ctx, "1001/ProcessedImages/missing.jpg", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Put(ctx, "../escape", []byte("x"), ""))
	assert.Error(t, store.Put(ctx, "/abs/key", []byte("x"), ""))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3StorePutAndDownload(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3StoreWithClient(fake, "race-photos", 0)

	require.NoError(t, store.Put(ctx, "1001/ProcessedReels/231.mp4", []byte("video"), "video/mp4"))
	require.NoError(t, store.Put(ctx, "1001/UnProcessedImages/x", []byte("raw"), ""))
	assert.Equal(t, "video/mp4", fake.types["race-photos/1001/ProcessedReels/231.mp4"])
	assert.Equal(t, "application/octet-stream", fake.types["race-photos/1001/UnProcessedImages/x"])

	dest := filepath.Join(t.TempDir(), "reel.mp4")
	require.NoError(t, store.Download(ctx, "1001/ProcessedReels/231.mp4", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))
}

func TestS3StoreErrors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3StoreWithClient(fake, "race-photos", 0)

	dest := filepath.Join(t.TempDir(), "missing.jpg")
	err := store.Download(ctx, "1001/ProcessedImages/missing.jpg", dest)
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))

	fake.putErr = errors.New("access denied")
	assert.ErrorContains(t, store.Put(ctx, "k", []byte("x"), ""), "access denied")
}

func TestValidateKeySegment(t *testing.T) {
	assert.NoError(t, ValidateKeySegment("231"))
	assert.NoError(t, ValidateKeySegment("A-12"))
	assert.Error(t, ValidateKeySegment(""))
	assert.Error(t, ValidateKeySegment(".."))
	assert.Error(t, ValidateKeySegment("23/1"))
	assert.Error(t, ValidateKeySegment(`23\1`))
	assert.Error(t, ValidateKeySegment("23\x001"))
}
