package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

// DefaultCacheTTL is how long a fetched posting is reused.
const DefaultCacheTTL = 24 * time.Hour

const cacheKeyPrefix = "jd_fetch:"

// CachedFetcher wraps a Fetcher with a key-value cache of fetched postings.
type CachedFetcher struct {
	fetcher *Fetcher
	store   storage.Store
	ttl     time.Duration
	now     func() time.Time
}

type cachedPosting struct {
	Posting   *types.JobPosting `json:"posting"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// NewCachedFetcher caches f's results in store. A zero ttl uses DefaultCacheTTL.
func NewCachedFetcher(f *Fetcher, store storage.Store, ttl time.Duration) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{fetcher: f, store: store, ttl: ttl, now: time.Now}
}

// CachedResult is a posting with its cache provenance.
type CachedResult struct {
	*types.JobPosting
	FromCache bool
	FetchedAt time.Time
}

// JobPosting returns a fresh cached posting for url or fetches and caches it. Failed fetches
// are not cached.
func (c *CachedFetcher) JobPosting(ctx context.Context, url string) (*CachedResult, error) {
	key := cacheKey(url)
	var hit cachedPosting
	err := storage.GetJSON(ctx, c.store, key, &hit)
	switch {
	case err == nil && hit.Posting != nil && c.now().Sub(hit.FetchedAt) < c.ttl:
		return &CachedResult{JobPosting: hit.Posting, FromCache: true, FetchedAt: hit.FetchedAt}, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		slog.Warn("reading fetch cache", "error", err)
	}

	posting, err := c.fetcher.JobPosting(ctx, url)
	if err != nil {
		return nil, err
	}
	entry := cachedPosting{Posting: posting, FetchedAt: c.now().UTC()}
	if err := storage.SetJSON(ctx, c.store, key, entry); err != nil {
		slog.Warn("writing fetch cache", "error", err)
	}
	return &CachedResult{JobPosting: posting, FetchedAt: entry.FetchedAt}, nil
}

// Invalidate drops the cached posting for url.
func (c *CachedFetcher) Invalidate(ctx context.Context, url string) error {
	return c.store.Remove(ctx, cacheKey(url))
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:12])
}
