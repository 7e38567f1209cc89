package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/truthlayer/internal/fetch"
	"github.com/ppiankov/truthlayer/internal/model"
)

func TestSourceCache_FetchesOncePerURL(t *testing.T) {
	c := NewSourceCache()
	var calls atomic.Int32
	release := make(chan struct{})

	fetchFn := func(ctx context.Context, url string) (*model.Source, error) {
		calls.Add(1)
		<-release
		return &model.Source{URL: url, Content: "text"}, nil
	}

	var wg sync.WaitGroup
	results := make([]*model.Source, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, err := c.GetOrFetch(context.Background(), "https://a.example", fetchFn)
			if err != nil {
				t.Errorf("GetOrFetch failed: %v", err)
			}
			results[i] = src
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 fetch, got %d", n)
	}
	for i, src := range results {
		if src != results[0] {
			t.Errorf("requester %d got a different source", i)
		}
	}

	// Later lookups are served from the cache
	if _, err := c.GetOrFetch(context.Background(), "https://a.example", fetchFn); err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected cached source, got %d fetches", n)
	}
}

func TestSourceCache_NoPartialWriteOnCancel(t *testing.T) {
	c := NewSourceCache()
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	fetchFn := func(ctx context.Context, url string) (*model.Source, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, "https://a.example", fetchFn)
		done <- err
	}()

	<-started
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache after cancellation, got %d entries", c.Len())
	}

	// The URL can be fetched again on a live context
	src, err := c.GetOrFetch(context.Background(), "https://a.example", func(ctx context.Context, url string) (*model.Source, error) {
		return &model.Source{URL: url, Content: "fresh"}, nil
	})
	if err != nil || src.Content != "fresh" {
		t.Errorf("Expected fresh fetch, got %v, %v", src, err)
	}
}

func TestSourceCache_FailuresAreCached(t *testing.T) {
	c := NewSourceCache()
	var calls atomic.Int32
	fetchFn := func(ctx context.Context, url string) (*model.Source, error) {
		calls.Add(1)
		return &model.Source{URL: url, Err: &model.FetchError{Kind: model.FetchBlocked, URL: url, StatusCode: 403}}, nil
	}

	for i := 0; i < 3; i++ {
		src, err := c.GetOrFetch(context.Background(), "https://a.example", fetchFn)
		if err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}
		if src.OK() {
			t.Error("Expected failed source")
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 fetch, got %d", n)
	}
}

func TestSourceFetcher_FetchAll(t *testing.T) {
	fetcher := &fakeFetcher{docs: map[string]string{
		"https://www.nasa.gov/mission": "    mission text  ",
		"https://blank.example":        "   ",
		"https://long.example/page":    "0123456789abcdef",
	}}
	cfg := model.DefaultConfig()
	sf := NewSourceFetcher(fetcher, fetch.NewAuthorityClassifier(&cfg.Authority), 2, 12)

	claims := []model.Claim{
		{ID: "c0", SourceURLs: []string{"https://www.nasa.gov/mission", "https://blank.example"}},
		{ID: "c1", SourceURLs: []string{"https://long.example/page", "https://www.nasa.gov/mission", "https://gone.example"}},
	}

	sources, err := sf.FetchAll(context.Background(), claims, NewSourceCache())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(sources) != 4 {
		t.Fatalf("Expected 4 sources, got %d", len(sources))
	}

	nasa := sources["https://www.nasa.gov/mission"]
	if !nasa.OK() || nasa.Content != "mission text" || nasa.Authority != model.TierPrimary {
		t.Errorf("Unexpected nasa source %+v", nasa)
	}
	if nasa.Title != "mission" {
		t.Errorf("Expected title derived from URL, got %q", nasa.Title)
	}
	if fetcher.count("https://www.nasa.gov/mission") != 1 {
		t.Errorf("Expected one fetch for shared URL")
	}

	if blank := sources["https://blank.example"]; blank.OK() || blank.Err.Kind != model.FetchEmpty {
		t.Errorf("Expected empty fetch error, got %+v", blank)
	}
	if long := sources["https://long.example/page"]; long.Content != "0123456789ab" {
		t.Errorf("Expected content truncated to 12 chars, got %q", long.Content)
	}
	if gone := sources["https://gone.example"]; gone.Err == nil || gone.Err.StatusCode != 404 {
		t.Errorf("Expected 404 fetch error, got %+v", gone)
	}
}

func TestDistinctURLs(t *testing.T) {
	claims := []model.Claim{
		{SourceURLs: []string{"https://b", "https://a"}},
		{SourceURLs: []string{"https://a", "https://c", "https://b"}},
	}
	got := DistinctURLs(claims)
	want := []string{"https://b", "https://a", "https://c"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
}

func TestSubjectFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://en.wikipedia.org/wiki/Laksa", "Laksa"},
		{"https://example.com/news/some-long_title.html", "some long title"},
		{"https://example.com/", "example.com"},
	}
	for _, tt := range tests {
		if got := subjectFromURL(tt.url); got != tt.want {
			t.Errorf("subjectFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
