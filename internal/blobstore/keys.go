package blobstore

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/yourusername/race-reels/internal/models"
)

// ReelExtension is appended to reel keys.
const ReelExtension = ".mp4"

// PhotoKey returns {eventId}/{partition}/{filename}.
func PhotoKey(eventID string, partition models.Partition, filename string) string {
	return path.Join(eventID, string(partition), filename)
}

// ReelKey returns {eventId}/ProcessedReels/{bibId}.mp4.
func ReelKey(eventID, bibID string) string {
	return path.Join(eventID, string(models.PartitionProcessedReels), bibID+ReelExtension)
}

// SanitizeFilename turns a source-declared name into a single safe key
// segment. Directory components and control characters are removed; the
// name is otherwise kept as reported.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("unusable filename %q", name)
	}
	return name, nil
}

// ValidateKeySegment rejects values that would escape their position in a
// key, such as bib ids containing separators.
func ValidateKeySegment(s string) error {
	if s == "" || s == "." || s == ".." {
		return fmt.Errorf("invalid key segment %q", s)
	}
	if strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("key segment %q contains a path separator", s)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return fmt.Errorf("key segment %q contains control characters", s)
		}
	}
	return nil
}
