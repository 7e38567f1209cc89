package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/truthlayer/internal/model"
	"github.com/ppiankov/truthlayer/internal/util"
)

// FirecrawlFetcher retrieves pages as markdown through the Firecrawl scrape API
type FirecrawlFetcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	Timeout         int      `json:"timeout,omitempty"` // milliseconds
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title      string `json:"title"`
			SourceURL  string `json:"sourceURL"`
			URL        string `json:"url"`
			StatusCode int    `json:"statusCode"`
			Error      string `json:"error,omitempty"`
		} `json:"metadata"`
	} `json:"data"`
}

// NewFirecrawlFetcher creates a Firecrawl-backed fetcher
func NewFirecrawlFetcher(apiKey, baseURL string, timeout time.Duration, opts HTTPOptions) (*FirecrawlFetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("firecrawl API key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &FirecrawlFetcher{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// The scrape call renders the page remotely, so allow more than the page timeout
			Timeout:   timeout + 15*time.Second,
			Transport: &http.Transport{Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)},
		},
	}, nil
}

// Fetch scrapes rawURL and returns its markdown text
func (f *FirecrawlFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	body, err := json.Marshal(firecrawlRequest{
		URL:             rawURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		Timeout:         int((f.httpClient.Timeout - 15*time.Second) / time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchHTTPError, URL: rawURL, StatusCode: http.StatusBadRequest, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, classifyTransportError(ctx, rawURL, err)
	}

	var fr firecrawlResponse
	_ = json.Unmarshal(respBody, &fr)

	if resp.StatusCode != http.StatusOK {
		msg := fr.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, scrapeServiceError(rawURL, resp.StatusCode, msg)
	}

	if !fr.Success {
		msg := fr.Error
		if msg == "" {
			msg = "scrape unsuccessful"
		}
		return nil, &model.FetchError{Kind: model.FetchHTTPError, URL: rawURL, StatusCode: fr.Data.Metadata.StatusCode, Message: msg}
	}

	if code := fr.Data.Metadata.StatusCode; code != 0 && (code < 200 || code >= 300) {
		return nil, statusError(rawURL, code, fr.Data.Metadata.Error)
	}

	text := CleanText(fr.Data.Markdown)
	if text == "" {
		return nil, &model.FetchError{Kind: model.FetchEmpty, URL: rawURL, StatusCode: fr.Data.Metadata.StatusCode, Message: "no readable text"}
	}

	finalURL := fr.Data.Metadata.URL
	if finalURL == "" {
		finalURL = fr.Data.Metadata.SourceURL
	}

	return &Document{
		URL:         rawURL,
		FinalURL:    finalURL,
		Title:       strings.TrimSpace(fr.Data.Metadata.Title),
		Text:        text,
		ContentType: "text/markdown",
	}, nil
}

// scrapeServiceError maps a failure of the scrape service itself
func scrapeServiceError(rawURL string, code int, msg string) *model.FetchError {
	switch code {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &model.FetchError{Kind: model.FetchTimeout, URL: rawURL, StatusCode: code, Message: msg}
	case http.StatusForbidden:
		// The service refuses to scrape some sites
		return &model.FetchError{Kind: model.FetchBlocked, URL: rawURL, StatusCode: code, Message: msg}
	default:
		return &model.FetchError{Kind: model.FetchHTTPError, URL: rawURL, StatusCode: code, Message: msg}
	}
}
