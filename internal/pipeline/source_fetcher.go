package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/truthlayer/internal/fetch"
	"github.com/ppiankov/truthlayer/internal/logging"
	"github.com/ppiankov/truthlayer/internal/model"
	"golang.org/x/sync/errgroup"
)

// SourceFetcher retrieves every distinct source URL cited by a set of claims
type SourceFetcher struct {
	fetcher   fetch.Fetcher
	authority *fetch.AuthorityClassifier
	workers   int
	maxChars  int
	now       func() time.Time
	logger    *slog.Logger
}

// NewSourceFetcher creates a source fetcher with at most workers fetches in flight.
// authority may be nil, in which case sources stay unclassified.
func NewSourceFetcher(f fetch.Fetcher, authority *fetch.AuthorityClassifier, workers, maxChars int) *SourceFetcher {
	if workers <= 0 {
		workers = 1
	}
	return &SourceFetcher{
		fetcher:   f,
		authority: authority,
		workers:   workers,
		maxChars:  maxChars,
		now:       time.Now,
		logger:    logging.New("sources"),
	}
}

// DistinctURLs returns the URLs cited by claims in first-seen order
func DistinctURLs(claims []model.Claim) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, c := range claims {
		for _, u := range c.SourceURLs {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	return urls
}

// FetchAll fetches every distinct URL through cache and returns the sources by URL.
// Individual fetch failures are recorded on the Source; only the context's
// error is returned.
func (s *SourceFetcher) FetchAll(ctx context.Context, claims []model.Claim, cache *SourceCache) (map[string]*model.Source, error) {
	urls := DistinctURLs(claims)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, u := range urls {
		g.Go(func() error {
			_, err := cache.GetOrFetch(gctx, u, s.fetchOne)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sources := make(map[string]*model.Source, len(urls))
	failed := 0
	for _, u := range urls {
		src, _ := cache.Lookup(u)
		sources[u] = src
		if !src.OK() {
			failed++
		}
	}

	s.logger.Info("sources fetched", "urls", len(urls), "failed", failed)
	return sources, nil
}

func (s *SourceFetcher) fetchOne(ctx context.Context, rawURL string) (*model.Source, error) {
	src := &model.Source{
		URL:       rawURL,
		Authority: model.TierUnknown,
	}
	if s.authority != nil {
		src.Authority = s.authority.Classify(rawURL)
	}

	doc, err := s.fetcher.Fetch(ctx, rawURL)
	src.FetchedAt = s.now().UTC()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fe, ok := fetch.AsFetchError(err)
		if !ok {
			fe = &model.FetchError{Kind: model.FetchHTTPError, URL: rawURL, Message: err.Error()}
		}
		s.logger.Warn("source fetch failed", "url", rawURL, "kind", fe.Kind, "status", fe.StatusCode)
		src.Err = fe
		return src, nil
	}

	text := strings.TrimSpace(fetch.Truncate(strings.TrimSpace(doc.Text), s.maxChars))
	if text == "" {
		src.Err = &model.FetchError{Kind: model.FetchEmpty, URL: rawURL, Message: "no readable text"}
		return src, nil
	}

	src.Content = text
	src.Attempts = doc.Attempts
	src.Title = doc.Title
	if src.Title == "" {
		final := doc.FinalURL
		if final == "" {
			final = rawURL
		}
		src.Title = subjectFromURL(final)
	}
	return src, nil
}

// Summarize reports the outcome of each distinct URL in first-seen order
func Summarize(claims []model.Claim, sources map[string]*model.Source) []model.SourceSummary {
	cited := make(map[string]int)
	for _, c := range claims {
		for _, u := range c.SourceURLs {
			cited[u]++
		}
	}

	var summaries []model.SourceSummary
	for _, u := range DistinctURLs(claims) {
		sum := model.SourceSummary{URL: u, CitedBy: cited[u]}
		if src := sources[u]; src != nil {
			sum.Title = src.Title
			sum.OK = src.OK()
			sum.Chars = len(src.Content)
			sum.Authority = src.Authority
			if src.Err != nil {
				sum.ErrorKind = src.Err.Kind
				sum.Error = src.Err.Error()
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries
}

// subjectFromURL extracts a human-readable subject from the URL
func subjectFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	// Last path segment, de-slugified and without extension
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
