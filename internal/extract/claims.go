package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/truthlayer/internal/llm"
	"github.com/ppiankov/truthlayer/internal/logging"
	"github.com/ppiankov/truthlayer/internal/model"
)

// ClaimSource is the slice of the language-model capability the extractor needs
type ClaimSource interface {
	ExtractClaims(ctx context.Context, reportText string) ([]llm.ExtractedClaim, error)
}

// ClaimExtractor turns report text into ordered, sourced claims
type ClaimExtractor struct {
	source         ClaimSource
	maxReportChars int
	maxClaims      int
}

// Option configures a ClaimExtractor
type Option func(*ClaimExtractor)

// WithMaxReportChars truncates reports longer than n characters (0 = no limit)
func WithMaxReportChars(n int) Option {
	return func(e *ClaimExtractor) { e.maxReportChars = n }
}

// WithMaxClaims keeps at most n claims (0 = no limit)
func WithMaxClaims(n int) Option {
	return func(e *ClaimExtractor) { e.maxClaims = n }
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(source ClaimSource, opts ...Option) *ClaimExtractor {
	e := &ClaimExtractor{source: source}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the claims found in reportText. runID namespaces claim IDs.
func (e *ClaimExtractor) Extract(ctx context.Context, runID, reportText string) ([]model.Claim, error) {
	if strings.TrimSpace(reportText) == "" {
		return nil, &model.ExtractionError{Reason: "report text is empty"}
	}

	text := truncateReport(reportText, e.maxReportChars)

	records, err := e.source.ExtractClaims(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &model.ExtractionError{Reason: "capability call failed", Err: err}
	}
	if len(records) == 0 {
		return nil, &model.ExtractionError{Reason: "no claims found in report"}
	}

	claims := e.buildClaims(runID, records)
	if len(claims) == 0 {
		return nil, &model.ExtractionError{
			Reason: fmt.Sprintf("none of %d extracted claims cite a usable source URL", len(records)),
		}
	}

	return claims, nil
}

// buildClaims cleans raw records, drops unusable ones, merges duplicates and assigns IDs
func (e *ClaimExtractor) buildClaims(runID string, records []llm.ExtractedClaim) []model.Claim {
	logger := logging.New("extract")

	byStatement := make(map[string]int)
	var claims []model.Claim

	for i, rec := range records {
		statement := strings.TrimSpace(rec.Statement)
		if statement == "" {
			logger.Warn("dropping claim without statement", "record", i)
			continue
		}

		urls := dedupeURLs(rec.SourceURLs)
		if len(urls) == 0 {
			logger.Warn("dropping claim without source URL", "record", i, "statement", statement)
			continue
		}

		key := strings.ToLower(statement)
		if idx, ok := byStatement[key]; ok {
			claims[idx].SourceURLs = dedupeURLs(append(claims[idx].SourceURLs, urls...))
			continue
		}

		if e.maxClaims > 0 && len(claims) >= e.maxClaims {
			logger.Info("claim limit reached", "limit", e.maxClaims, "records", len(records))
			break
		}

		question := strings.TrimSpace(rec.VerificationQuestion)
		if question == "" {
			question = deriveQuestion(statement)
		}

		byStatement[key] = len(claims)
		claims = append(claims, model.Claim{
			Statement:            statement,
			VerificationQuestion: question,
			SourceURLs:           urls,
		})
	}

	for i := range claims {
		claims[i].Index = i
		claims[i].ID = fmt.Sprintf("claim-%s-%d", runID, i)
	}

	return claims
}

// deriveQuestion turns a statement into a yes/no question about the sources
func deriveQuestion(statement string) string {
	s := strings.TrimRight(statement, ".!? ")
	if s == "" {
		return ""
	}
	// Lowercase a leading function word; names and acronyms stay as written
	first, rest, found := strings.Cut(s, " ")
	if found && lowerLeading[first] {
		s = strings.ToLower(first) + " " + rest
	}
	return "Do the sources state that " + s + "?"
}

var lowerLeading = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "These": true,
	"In": true, "On": true, "By": true, "Its": true, "Their": true,
}

// truncateReport caps the report length, marking the cut
func truncateReport(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	// Avoid splitting a multi-byte rune
	cut := max
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n\n[... report truncated ...]"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
