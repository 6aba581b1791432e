package metadata

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/unipublish/backend/internal/logging"
	"github.com/unipublish/backend/internal/platforms"
)

// Service is implemented by Client and by CachingClient.
type Service interface {
	AnalyzeVideoContext(ctx context.Context, video []byte, mimeType string) (string, error)
	GenerateMetadata(ctx context.Context, platform platforms.ID, sourceContext string) (platforms.Metadata, error)
}

type analysisEntry struct {
	summary string
	expires time.Time
}

// CachingClient wraps another Service and memoizes video analyses by content
// digest for a TTL. Metadata generation is never cached.
type CachingClient struct {
	base Service
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]analysisEntry
}

// NewCachingClient returns a Service that caches analyses for the provided TTL.
func NewCachingClient(base Service, ttl time.Duration) *CachingClient {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachingClient{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]analysisEntry),
	}
}

// AnalyzeVideoContext returns a cached summary for identical video content,
// otherwise it delegates to the underlying service and stores the result.
func (c *CachingClient) AnalyzeVideoContext(ctx context.Context, video []byte, mimeType string) (string, error) {
	if c == nil || c.base == nil {
		return "", ErrClientUnavailable
	}

	key := digest(video, mimeType)
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		logging.FromContext(ctx).Debug("video analysis cache hit", "digest", key[:16])
		return entry.summary, nil
	}

	summary, err := c.base.AnalyzeVideoContext(ctx, video, mimeType)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.items[key] = analysisEntry{summary: summary, expires: now.Add(c.ttl)}
	c.gcLocked(now)
	c.mu.Unlock()

	return summary, nil
}

// GenerateMetadata delegates to the underlying service.
func (c *CachingClient) GenerateMetadata(ctx context.Context, platform platforms.ID, sourceContext string) (platforms.Metadata, error) {
	if c == nil || c.base == nil {
		return platforms.Metadata{}, ErrClientUnavailable
	}
	return c.base.GenerateMetadata(ctx, platform, sourceContext)
}

func (c *CachingClient) gcLocked(now time.Time) {
	for key, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, key)
		}
	}
}

func digest(video []byte, mimeType string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(mimeType))
	h.Write([]byte{0})
	h.Write(video)
	return hex.EncodeToString(h.Sum(nil))
}
