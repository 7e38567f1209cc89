package pipeline

import (
	"context"
	"sync"

	"github.com/ppiankov/truthlayer/internal/model"
	"golang.org/x/sync/singleflight"
)

// SourceCache holds the sources fetched during one pipeline run.
// Each URL is written at most once; concurrent requesters of an in-flight
// URL wait for the same fetch instead of starting another.
type SourceCache struct {
	mu      sync.RWMutex
	entries map[string]*model.Source
	group   singleflight.Group
}

// NewSourceCache creates an empty per-run cache
func NewSourceCache() *SourceCache {
	return &SourceCache{entries: make(map[string]*model.Source)}
}

// Lookup returns the cached source for url
func (c *SourceCache) Lookup(url string) (*model.Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.entries[url]
	return src, ok
}

// Len returns the number of cached sources
func (c *SourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the cached entries
func (c *SourceCache) Snapshot() map[string]*model.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*model.Source, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// GetOrFetch returns the cached source for url, running fetch once if absent.
// fetch may only fail with a context error; in that case nothing is stored.
func (c *SourceCache) GetOrFetch(ctx context.Context, url string, fetch func(context.Context, string) (*model.Source, error)) (*model.Source, error) {
	if src, ok := c.Lookup(url); ok {
		return src, nil
	}

	ch := c.group.DoChan(url, func() (interface{}, error) {
		if src, ok := c.Lookup(url); ok {
			return src, nil
		}

		src, err := fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.entries[url]; ok {
			return existing, nil
		}
		c.entries[url] = src
		return src, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Source), nil
	}
}
