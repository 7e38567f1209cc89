package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/truthlayer/internal/model"
	"github.com/ppiankov/truthlayer/internal/util"
	"github.com/ppiankov/truthlayer/internal/worker"
)

// HTTPOptions configures an HTTPFetcher
type HTTPOptions struct {
	Timeout       time.Duration
	UserAgent     string
	MaxBodyBytes  int64
	InsecureTLS   bool
	RespectRobots bool
	HTTPProxy     string
	HTTPSProxy    string
	NoProxy       string
	Limiter       *worker.Limiter // nil disables rate limiting
}

// HTTPOptionsFromConfig maps application config onto fetcher options
func HTTPOptionsFromConfig(cfg *model.Config) HTTPOptions {
	return HTTPOptions{
		Timeout:       cfg.HTTP.Timeout,
		UserAgent:     cfg.HTTP.UserAgent,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		InsecureTLS:   cfg.HTTP.InsecureTLS,
		RespectRobots: cfg.HTTP.RespectRobots,
		HTTPProxy:     cfg.HTTP.HTTPProxy,
		HTTPSProxy:    cfg.HTTP.HTTPSProxy,
		NoProxy:       cfg.HTTP.NoProxy,
		Limiter:       worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
	}
}

// HTTPFetcher downloads pages directly and reduces them to readable text
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	registry   *Registry
}

// NewHTTPFetcher creates a new HTTPFetcher
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4_000_000
	}
	if opts.UserAgent == "" {
		opts.UserAgent = model.DefaultConfig().HTTP.UserAgent
	}

	transport := &http.Transport{
		Proxy:               util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
		MaxIdleConnsPerHost: 4,
	}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	f := &HTTPFetcher{
		httpClient: client,
		userAgent:  opts.UserAgent,
		maxBytes:   opts.MaxBodyBytes,
		limiter:    opts.Limiter,
		registry:   NewRegistry(),
	}
	if opts.RespectRobots {
		f.robots = util.NewRobotsCheckerWithClient(opts.UserAgent, client)
	}
	return f
}

// Fetch retrieves rawURL and returns its readable text
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if f.robots != nil {
		allowed, delay, _ := f.robots.CanFetch(ctx, rawURL)
		if !allowed {
			return nil, &model.FetchError{Kind: model.FetchBlocked, URL: rawURL, Message: "disallowed by robots.txt"}
		}
		if f.limiter != nil {
			f.limiter.ObserveCrawlDelay(rawURL, delay)
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &model.FetchError{Kind: model.FetchHTTPError, URL: rawURL, Message: err.Error()}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchHTTPError, URL: rawURL, StatusCode: http.StatusBadRequest, Message: err.Error()}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,text/markdown;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, statusError(rawURL, resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	doc := &Document{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		ContentType: contentType,
	}

	switch mediaType(contentType, body) {
	case "text/html", "application/xhtml+xml":
		title, text, err := f.registry.HTMLToText(doc.FinalURL, string(body))
		if err != nil {
			return nil, &model.FetchError{Kind: model.FetchEmpty, URL: rawURL, StatusCode: resp.StatusCode, Message: "unparseable HTML: " + err.Error()}
		}
		doc.Title, doc.Text = title, text
	case "text/plain", "text/markdown", "text/x-markdown", "application/json", "text/csv", "application/xml", "text/xml":
		doc.Text = CleanText(string(body))
	default:
		return nil, &model.FetchError{Kind: model.FetchEmpty, URL: rawURL, StatusCode: resp.StatusCode, Message: "unsupported content type " + contentType}
	}

	if doc.Text == "" {
		return nil, &model.FetchError{Kind: model.FetchEmpty, URL: rawURL, StatusCode: resp.StatusCode, Message: "no readable text"}
	}

	return doc, nil
}

// mediaType returns the lowercased media type, sniffing when the header is missing
func mediaType(contentType string, body []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return strings.ToLower(mt)
}

// statusError maps a non-2xx response onto the fetch error taxonomy
func statusError(rawURL string, code int, status string) *model.FetchError {
	kind := model.FetchHTTPError
	switch code {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden, http.StatusUnavailableForLegalReasons:
		kind = model.FetchBlocked
	}
	return &model.FetchError{Kind: kind, URL: rawURL, StatusCode: code, Message: status}
}

// classifyTransportError turns a client error into a FetchError, or returns the caller's context error
func classifyTransportError(ctx context.Context, rawURL string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &model.FetchError{Kind: model.FetchTimeout, URL: rawURL, Message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.FetchError{Kind: model.FetchTimeout, URL: rawURL, Message: err.Error()}
	}

	return &model.FetchError{Kind: model.FetchHTTPError, URL: rawURL, Message: err.Error()}
}
