package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedOutput means the model answered with something that is not the requested JSON
var ErrMalformedOutput = errors.New("malformed model output")

// Capability is the language-model boundary the pipeline consumes.
// One implementation serves both operations so tests can swap in a
// deterministic stand-in.
type Capability interface {
	// ExtractClaims returns raw claim records found in the report
	ExtractClaims(ctx context.Context, reportText string) ([]ExtractedClaim, error)

	// Judge assesses one claim against the supplied evidence text
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)
}

// ExtractedClaim is one raw record returned by the extraction call
type ExtractedClaim struct {
	Statement            string   `json:"statement"`
	VerificationQuestion string   `json:"verification_question"`
	SourceURLs           []string `json:"source_urls"`
}

// JudgeRequest carries one claim and its evidence
type JudgeRequest struct {
	ClaimID   string
	Statement string
	Question  string
	Evidence  string // Concatenated source excerpts
}

// Judgment is the raw judge answer; Status is not yet validated
type Judgment struct {
	Status            string    `json:"status"`
	Confidence        flexFloat `json:"confidence"`
	Reasoning         string    `json:"reasoning"`
	HasContradictions bool      `json:"has_contradictions"`
}

// Assistant implements Capability on top of a Provider
type Assistant struct {
	provider        Provider
	extractionModel string
	judgmentModel   string
}

// NewAssistant creates an Assistant; empty model names fall back to the provider's model
func NewAssistant(provider Provider, extractionModel, judgmentModel string) *Assistant {
	return &Assistant{
		provider:        provider,
		extractionModel: extractionModel,
		judgmentModel:   judgmentModel,
	}
}

// ProviderName returns the underlying provider name
func (a *Assistant) ProviderName() string {
	return a.provider.Name()
}

// ExtractClaims asks the model for claim records
func (a *Assistant) ExtractClaims(ctx context.Context, reportText string) ([]ExtractedClaim, error) {
	resp, err := a.provider.Complete(ctx, CompletionRequest{
		System: extractionSystemPrompt,
		Prompt: BuildExtractionPrompt(reportText),
		Model:  a.extractionModel,
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	// A nil Claims means the "claims" key was absent, e.g. when the
	// embedded-object fallback picked one element out of a bare array
	var envelope struct {
		Claims *[]ExtractedClaim `json:"claims"`
	}
	envErr := decodeJSON(resp.Text, &envelope)
	if envErr == nil && envelope.Claims != nil {
		return *envelope.Claims, nil
	}

	// Some models drop the envelope and return the bare array
	var bare []ExtractedClaim
	if err := decodeJSON(resp.Text, &bare); err == nil {
		return bare, nil
	}
	if envErr != nil {
		return nil, envErr
	}
	return nil, fmt.Errorf("%w: missing claims list: %s", ErrMalformedOutput, truncate(resp.Text, 120))
}

// Judge asks the model for a verdict on one claim
func (a *Assistant) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	resp, err := a.provider.Complete(ctx, CompletionRequest{
		System:    judgmentSystemPrompt,
		Prompt:    BuildJudgmentPrompt(req),
		Model:     a.judgmentModel,
		MaxTokens: 1000,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	var judgment Judgment
	if err := decodeJSON(resp.Text, &judgment); err != nil {
		return nil, err
	}
	return &judgment, nil
}

// decodeJSON parses model output, tolerating code fences and surrounding prose
func decodeJSON(text string, v interface{}) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	candidate := stripCodeFence(text)
	if err := json.Unmarshal([]byte(candidate), v); err == nil {
		return nil
	}

	// Try to extract JSON if embedded
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		startIdx := strings.Index(candidate, pair[0])
		endIdx := strings.LastIndex(candidate, pair[1])
		if startIdx >= 0 && endIdx > startIdx {
			if err := json.Unmarshal([]byte(candidate[startIdx:endIdx+1]), v); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: %s", ErrMalformedOutput, truncate(text, 120))
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// flexFloat accepts a JSON number or a numeric string
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("confidence %q: %w", raw, err)
	}
	*f = flexFloat(v)
	return nil
}
