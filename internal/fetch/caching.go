package fetch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/truthlayer/internal/cache"
	"github.com/ppiankov/truthlayer/internal/logging"
)

// CachingFetcher serves documents from a cross-run cache before calling next.
// Only successful documents are stored.
type CachingFetcher struct {
	next  Fetcher
	cache cache.Cache
	ttl   time.Duration
}

// NewCachingFetcher wraps next with c
func NewCachingFetcher(next Fetcher, c cache.Cache, ttl time.Duration) *CachingFetcher {
	return &CachingFetcher{next: next, cache: c, ttl: ttl}
}

// Fetch returns the cached document or fetches and stores it
func (f *CachingFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	key := cache.Key(url)

	if data, found := f.cache.Get(ctx, key); found {
		var doc Document
		if err := json.Unmarshal(data, &doc); err == nil && doc.Text != "" {
			doc.Attempts = 0
			return &doc, nil
		}
	}

	doc, err := f.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(doc); err == nil {
		if err := f.cache.Set(ctx, key, data, f.ttl); err != nil {
			logging.New("fetch").Warn("source cache write failed", "url", url, "error", err)
		}
	}

	return doc, nil
}
