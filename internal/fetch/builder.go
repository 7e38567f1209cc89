package fetch

import (
	"fmt"
	"strings"

	"github.com/ppiankov/truthlayer/internal/cache"
	"github.com/ppiankov/truthlayer/internal/model"
)

// NewFromConfig assembles the configured fetch stack:
// backend (http or firecrawl), wrapped in retries, wrapped in the optional content cache.
func NewFromConfig(cfg *model.Config, c cache.Cache) (Fetcher, error) {
	opts := HTTPOptionsFromConfig(cfg)

	var base Fetcher
	switch strings.ToLower(cfg.Fetch.Backend) {
	case "", "http":
		base = NewHTTPFetcher(opts)
	case "firecrawl":
		fc, err := NewFirecrawlFetcher(cfg.Fetch.FirecrawlAPIKey, cfg.Fetch.FirecrawlBaseURL, cfg.HTTP.Timeout, opts)
		if err != nil {
			return nil, err
		}
		base = fc
	default:
		return nil, fmt.Errorf("unknown fetch backend: %s (supported: http, firecrawl)", cfg.Fetch.Backend)
	}

	var f Fetcher = NewRetryingFetcher(base, cfg.Fetch.MaxAttempts, cfg.Fetch.InitialBackoff)
	if c != nil {
		f = NewCachingFetcher(f, c, cfg.Cache.TTL)
	}
	return f, nil
}
