package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/httpclient"
)

const (
	driveSourceName = "google_drive"

	// DefaultMaxFileBytes caps a single download.
	DefaultMaxFileBytes int64 = 200 << 20
)

// DriveClient implements Gateway for the Google Drive v3 REST API.
// Token acquisition is out of scope; the client sends whatever bearer token
// it was configured with.
type DriveClient struct {
	httpClient   *httpclient.Client
	baseURL      string
	accessToken  string
	maxFileBytes int64
	logger       *logrus.Entry
}

// NewDriveClient creates a new Drive API client
func NewDriveClient(httpClient *httpclient.Client, baseURL, accessToken string, logger *logrus.Logger) *DriveClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DriveClient{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(baseURL, "/"),
		accessToken:  accessToken,
		maxFileBytes: DefaultMaxFileBytes,
		logger:       logger.WithField("component", "source"),
	}
}

// Name returns the name of the source
func (c *DriveClient) Name() string {
	return driveSourceName
}

// GetMetadata fetches name and mimeType for a file
func (c *DriveClient) GetMetadata(ctx context.Context, fileID string) (*FileMetadata, error) {
	endpoint := fmt.Sprintf("%s/files/%s?fields=%s&supportsAllDrives=true",
		c.baseURL, url.PathEscape(fileID), url.QueryEscape("name,mimeType"))

	resp, err := c.httpClient.Get(ctx, endpoint, c.headers())
	if err != nil {
		return nil, NewSourceError(driveSourceName, ErrCodeNetworkError, "metadata request failed", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, fileID); err != nil {
		return nil, err
	}

	var meta FileMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, NewSourceError(driveSourceName, ErrCodeInvalidData, "failed to decode metadata", err)
	}
	if meta.Name == "" {
		return nil, NewSourceError(driveSourceName, ErrCodeInvalidData, "metadata has no file name", nil)
	}

	c.logger.WithFields(logrus.Fields{
		"file_id":   fileID,
		"name":      meta.Name,
		"mime_type": meta.MimeType,
	}).Debug("Fetched file metadata")

	return &meta, nil
}

// GetBytes downloads the file content
func (c *DriveClient) GetBytes(ctx context.Context, fileID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/files/%s?alt=media&supportsAllDrives=true", c.baseURL, url.PathEscape(fileID))

	resp, err := c.httpClient.Get(ctx, endpoint, c.headers())
	if err != nil {
		return nil, NewSourceError(driveSourceName, ErrCodeNetworkError, "download request failed", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, fileID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxFileBytes+1))
	if err != nil {
		return nil, NewSourceError(driveSourceName, ErrCodeNetworkError, "failed to read file content", err)
	}
	if int64(len(data)) > c.maxFileBytes {
		return nil, NewSourceError(driveSourceName, ErrCodeInvalidData,
			fmt.Sprintf("file exceeds %d bytes", c.maxFileBytes), nil)
	}

	return data, nil
}

func (c *DriveClient) headers() http.Header {
	h := http.Header{}
	if c.accessToken != "" {
		h.Set("Authorization", "Bearer "+c.accessToken)
	}
	return h
}

func checkStatus(resp *http.Response, fileID string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := fmt.Sprintf("file %s: status %d: %s", fileID, resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NewSourceError(driveSourceName, ErrCodeNotFound, msg, nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewSourceError(driveSourceName, ErrCodeAuthenticationFailed, msg, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewSourceError(driveSourceName, ErrCodeRateLimitExceeded, msg, nil)
	case resp.StatusCode >= 500:
		return NewSourceError(driveSourceName, ErrCodeServerError, msg, nil)
	default:
		return NewSourceError(driveSourceName, ErrCodeInvalidData, msg, nil)
	}
}
