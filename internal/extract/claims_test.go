package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/truthlayer/internal/llm"
	"github.com/ppiankov/truthlayer/internal/model"
)

type fakeSource struct {
	records []llm.ExtractedClaim
	err     error
	calls   int
	lastLen int
}

func (f *fakeSource) ExtractClaims(ctx context.Context, reportText string) ([]llm.ExtractedClaim, error) {
	f.calls++
	f.lastLen = len(reportText)
	return f.records, f.err
}

func TestClaimExtractor_Extract(t *testing.T) {
	source := &fakeSource{records: []llm.ExtractedClaim{
		{
			Statement:            "  The Eiffel Tower was completed in 1889. ",
			VerificationQuestion: "Do the sources state that the Eiffel Tower was completed in 1889?",
			SourceURLs:           []string{"HTTPS://Example.ORG/eiffel#history", "https://example.org/eiffel"},
		},
		{
			Statement:  "Water boils at 100 C at sea level.",
			SourceURLs: []string{"https://a.example/water", "ftp://files.example/water"},
		},
	}}

	extractor := NewClaimExtractor(source)
	claims, err := extractor.Extract(context.Background(), "run1", "report text")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []model.Claim{
		{
			ID:                   "claim-run1-0",
			Index:                0,
			Statement:            "The Eiffel Tower was completed in 1889.",
			VerificationQuestion: "Do the sources state that the Eiffel Tower was completed in 1889?",
			SourceURLs:           []string{"https://example.org/eiffel"},
		},
		{
			ID:                   "claim-run1-1",
			Index:                1,
			Statement:            "Water boils at 100 C at sea level.",
			VerificationQuestion: "Do the sources state that Water boils at 100 C at sea level?",
			SourceURLs:           []string{"https://a.example/water"},
		},
	}
	if diff := cmp.Diff(want, claims); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}
}

func TestClaimExtractor_DropsClaimsWithoutSources(t *testing.T) {
	source := &fakeSource{records: []llm.ExtractedClaim{
		{Statement: "Unsourced opinion."},
		{Statement: "Sourced fact.", SourceURLs: []string{"https://b.example"}},
		{Statement: "", SourceURLs: []string{"https://c.example"}},
		{Statement: "Bad link.", SourceURLs: []string{"not a url", "mailto:x@y.z"}},
	}}

	claims, err := NewClaimExtractor(source).Extract(context.Background(), "r", "text")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("Expected 1 claim, got %d", len(claims))
	}
	if claims[0].Statement != "Sourced fact." || claims[0].Index != 0 || claims[0].ID != "claim-r-0" {
		t.Errorf("Unexpected claim: %+v", claims[0])
	}
	for _, c := range claims {
		if !c.HasSources() {
			t.Errorf("claim %s has no sources", c.ID)
		}
	}
}

func TestClaimExtractor_MergesDuplicateStatements(t *testing.T) {
	source := &fakeSource{records: []llm.ExtractedClaim{
		{Statement: "Same claim.", SourceURLs: []string{"https://a.example"}},
		{Statement: "Other claim.", SourceURLs: []string{"https://c.example"}},
		{Statement: "same CLAIM.", SourceURLs: []string{"https://b.example", "https://a.example"}},
	}}

	claims, err := NewClaimExtractor(source).Extract(context.Background(), "r", "text")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("Expected 2 claims, got %d", len(claims))
	}
	want := []string{"https://a.example", "https://b.example"}
	if diff := cmp.Diff(want, claims[0].SourceURLs); diff != "" {
		t.Errorf("merged URLs mismatch (-want +got):\n%s", diff)
	}
}

func TestClaimExtractor_Errors(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		source    *fakeSource
		wantCalls int
	}{
		{name: "empty text", text: "", source: &fakeSource{}, wantCalls: 0},
		{name: "whitespace text", text: " \n\t ", source: &fakeSource{}, wantCalls: 0},
		{name: "capability error", text: "report", source: &fakeSource{err: llm.ErrMalformedOutput}, wantCalls: 1},
		{name: "no records", text: "report", source: &fakeSource{}, wantCalls: 1},
		{
			name:      "nothing survives",
			text:      "report",
			source:    &fakeSource{records: []llm.ExtractedClaim{{Statement: "No URL."}}},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClaimExtractor(tt.source).Extract(context.Background(), "r", tt.text)
			var extractionErr *model.ExtractionError
			if !errors.As(err, &extractionErr) {
				t.Fatalf("Expected ExtractionError, got %v", err)
			}
			if tt.source.calls != tt.wantCalls {
				t.Errorf("Expected %d capability calls, got %d", tt.wantCalls, tt.source.calls)
			}
		})
	}
}

func TestClaimExtractor_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{err: context.Canceled}
	_, err := NewClaimExtractor(source).Extract(ctx, "r", "report")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestClaimExtractor_Options(t *testing.T) {
	source := &fakeSource{records: []llm.ExtractedClaim{
		{Statement: "One.", SourceURLs: []string{"https://a.example"}},
		{Statement: "Two.", SourceURLs: []string{"https://b.example"}},
		{Statement: "Three.", SourceURLs: []string{"https://c.example"}},
	}}

	extractor := NewClaimExtractor(source, WithMaxClaims(2), WithMaxReportChars(10))
	claims, err := extractor.Extract(context.Background(), "r", strings.Repeat("x", 100))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(claims) != 2 {
		t.Errorf("Expected 2 claims, got %d", len(claims))
	}
	if source.lastLen >= 100 {
		t.Errorf("Expected truncated report, got %d chars", source.lastLen)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a", "https://example.com/a"},
		{"  HTTPS://Example.COM/Path#frag  ", "https://example.com/Path"},
		{"<https://example.com/a>", "https://example.com/a"},
		{"https://example.com/a).", "https://example.com/a"},
		{"http://example.com/?q=1", "http://example.com/?q=1"},
		{"ftp://example.com/file", ""},
		{"mailto:someone@example.com", ""},
		{"javascript:void(0)", ""},
		{"#section", ""},
		{"/relative/path", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDeriveQuestion(t *testing.T) {
	tests := []struct {
		statement string
		want      string
	}{
		{"The sky is blue.", "Do the sources state that the sky is blue?"},
		{"NASA launched Apollo 11 in 1969.", "Do the sources state that NASA launched Apollo 11 in 1969?"},
		{"Paris is the capital of France", "Do the sources state that Paris is the capital of France?"},
	}

	for _, tt := range tests {
		if got := deriveQuestion(tt.statement); got != tt.want {
			t.Errorf("deriveQuestion(%q) = %q, want %q", tt.statement, got, tt.want)
		}
	}
}
