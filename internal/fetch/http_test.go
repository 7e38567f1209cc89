package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/truthlayer/internal/model"
	"github.com/ppiankov/truthlayer/internal/worker"
)

func newTestHTTPFetcher(robots bool) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		Timeout:       2 * time.Second,
		UserAgent:     "truthlayer-test/1.0",
		MaxBodyBytes:  1 << 20,
		RespectRobots: robots,
		Limiter:       worker.NewLimiter(1000, 100),
	})
}

func TestHTTPFetcher_HTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "truthlayer-test/1.0" {
			t.Errorf("Expected user agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><head><title>Tower facts</title><script>var x = 1;</script></head>
<body><nav>Home | About</nav>
<article><h1>The Tower</h1><p>The tower was   completed in 1889.</p><p>It is 330 m tall.</p></article>
<footer>Copyright</footer></body></html>`)
	}))
	defer server.Close()

	doc, err := newTestHTTPFetcher(false).Fetch(context.Background(), server.URL+"/tower")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if doc.Title != "Tower facts" {
		t.Errorf("Expected title 'Tower facts', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "The tower was completed in 1889.") {
		t.Errorf("Expected normalized paragraph, got %q", doc.Text)
	}
	for _, unwanted := range []string{"var x", "Home | About", "Copyright"} {
		if strings.Contains(doc.Text, unwanted) {
			t.Errorf("Expected %q to be stripped, got %q", unwanted, doc.Text)
		}
	}
	if doc.URL != server.URL+"/tower" {
		t.Errorf("Unexpected URL %s", doc.URL)
	}
}

func TestHTTPFetcher_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = fmt.Fprint(w, "# Title\n\n\n\n\nBody   text")
	}))
	defer server.Close()

	doc, err := newTestHTTPFetcher(false).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if doc.Text != "# Title\n\nBody text" {
		t.Errorf("Unexpected text %q", doc.Text)
	}
}

func TestHTTPFetcher_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		ctype    string
		body     string
		wantKind model.FetchErrorKind
		retry    bool
	}{
		{name: "not found", status: 404, wantKind: model.FetchHTTPError},
		{name: "unauthorized", status: 401, wantKind: model.FetchBlocked},
		{name: "paywall", status: 402, wantKind: model.FetchBlocked},
		{name: "forbidden", status: 403, wantKind: model.FetchBlocked},
		{name: "legal", status: 451, wantKind: model.FetchBlocked},
		{name: "rate limited", status: 429, wantKind: model.FetchHTTPError, retry: true},
		{name: "server error", status: 503, wantKind: model.FetchHTTPError, retry: true},
		{name: "empty html", status: 200, ctype: "text/html", body: "<html><body><script>x()</script></body></html>", wantKind: model.FetchEmpty},
		{name: "binary", status: 200, ctype: "application/pdf", body: "%PDF-1.4", wantKind: model.FetchEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.ctype != "" {
					w.Header().Set("Content-Type", tt.ctype)
				}
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestHTTPFetcher(false).Fetch(context.Background(), server.URL)
			fe, ok := AsFetchError(err)
			if !ok {
				t.Fatalf("Expected FetchError, got %v", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, fe.Kind)
			}
			if fe.Retryable() != tt.retry {
				t.Errorf("Expected retryable=%v, got %v", tt.retry, fe.Retryable())
			}
		})
	}
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewHTTPFetcher(HTTPOptions{Timeout: 50 * time.Millisecond})
	_, err := f.Fetch(context.Background(), server.URL)
	fe, ok := AsFetchError(err)
	if !ok || fe.Kind != model.FetchTimeout {
		t.Fatalf("Expected timeout FetchError, got %v", err)
	}
}

func TestHTTPFetcher_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := newTestHTTPFetcher(false).Fetch(context.Background(), addr)
	fe, ok := AsFetchError(err)
	if !ok || fe.Kind != model.FetchHTTPError || fe.StatusCode != 0 {
		t.Fatalf("Expected transport http_error, got %v", err)
	}
	if !fe.Retryable() {
		t.Error("Expected transport failure to be retryable")
	}
}

func TestHTTPFetcher_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestHTTPFetcher(false).Fetch(ctx, server.URL)
	if err != context.Canceled {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestHTTPFetcher_Robots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		default:
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprint(w, "public text")
		}
	}))
	defer server.Close()

	f := newTestHTTPFetcher(true)

	if _, err := f.Fetch(context.Background(), server.URL+"/public"); err != nil {
		t.Errorf("Expected public page to be fetched, got %v", err)
	}

	_, err := f.Fetch(context.Background(), server.URL+"/private/page")
	fe, ok := AsFetchError(err)
	if !ok || fe.Kind != model.FetchBlocked {
		t.Fatalf("Expected blocked FetchError, got %v", err)
	}
}

func TestHTTPFetcher_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, strings.Repeat("a", 1000))
	}))
	defer server.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxBodyBytes: 100})
	doc, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(doc.Text) != 100 {
		t.Errorf("Expected body capped at 100 bytes, got %d", len(doc.Text))
	}
}

func TestHTTPFetcher_RedirectCap(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	_, err := newTestHTTPFetcher(false).Fetch(context.Background(), server.URL+"/r")
	if _, ok := AsFetchError(err); !ok {
		t.Fatalf("Expected FetchError after redirect loop, got %v", err)
	}
}
