package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/metrics"
)

// CachedExtractor memoises successful extractions by image digest, so a
// retried ingestion of the same photo does not hit the OCR service again.
// Failures are never cached.
type CachedExtractor struct {
	next   Extractor
	cache  *cache.Cache
	ttl    time.Duration
	logger *logrus.Entry
}

// NewCachedExtractor wraps next with a TTL cache. A non-positive ttl returns
// next unchanged.
func NewCachedExtractor(next Extractor, ttl time.Duration, logger *logrus.Logger) Extractor {
	if ttl <= 0 {
		return next
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CachedExtractor{
		next:   next,
		cache:  cache.New(ttl, ttl*2),
		ttl:    ttl,
		logger: logger.WithField("component", "extractor_cache"),
	}
}

// Extract returns a cached result when one exists for the image digest
func (c *CachedExtractor) Extract(ctx context.Context, image []byte) ([]string, error) {
	key := digest(image)

	if cached, found := c.cache.Get(key); found {
		if bibs, ok := cached.([]string); ok {
			c.logger.WithField("digest", key).Debug("Cache hit for extraction")
			metrics.RecordExtractionCacheHit()
			return append([]string(nil), bibs...), nil
		}
	}

	bibs, err := c.next.Extract(ctx, image)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, append([]string(nil), bibs...), c.ttl)
	return bibs, nil
}

// ItemCount returns the number of cached results
func (c *CachedExtractor) ItemCount() int {
	return c.cache.ItemCount()
}

// Clear flushes the cache
func (c *CachedExtractor) Clear() {
	c.cache.Flush()
}

func digest(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
