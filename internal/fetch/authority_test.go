package fetch

import (
	"testing"

	"github.com/ppiankov/truthlayer/internal/model"
)

func TestAuthorityClassifier_Classify(t *testing.T) {
	config := &model.AuthorityConfig{
		PrimaryDomains:   []string{"legislation.gov.uk", "doi.org", "Scholar.Google.com"},
		SecondaryDomains: []string{"wikipedia.org", "britannica.com", "google.com"},
		PathPatterns: []model.PathPattern{
			{Pattern: "/statute/", Tier: "primary"},
			{Pattern: "/press/", Tier: "secondary"},
			{Pattern: "([", Tier: "primary"}, // invalid, ignored
		},
		DomainMap: map[string]string{
			"myblog.example":  "secondary",
			"Journal.Example": "1",
		},
	}

	classifier := NewAuthorityClassifier(config)

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{"https://legislation.gov.uk/ukpga/1998/42", model.TierPrimary, "primary exact"},
		{"https://www.legislation.gov.uk/statute", model.TierPrimary, "primary with www"},
		{"https://doi.org/10.1234/example", model.TierPrimary, "DOI"},
		{"https://scholar.google.com/citations", model.TierPrimary, "more specific primary beats secondary parent"},
		{"https://news.google.com/x", model.TierSecondary, "secondary parent domain"},
		{"https://en.wikipedia.org/wiki/Laksa", model.TierSecondary, "wikipedia subdomain"},
		{"https://www.britannica.com/topic/democracy", model.TierSecondary, "britannica"},
		{"https://example.com/statute/42", model.TierPrimary, "path pattern primary"},
		{"https://example.com/press/release", model.TierSecondary, "path pattern secondary"},
		{"https://myblog.example/post", model.TierSecondary, "domain map"},
		{"https://journal.example/paper", model.TierPrimary, "domain map numeric, case-insensitive"},
		{"https://data.census.gov/table", model.TierPrimary, ".gov"},
		{"https://cs.stanford.edu/paper", model.TierPrimary, ".edu"},
		{"https://www.ox.ac.uk/research", model.TierPrimary, ".ac.uk"},
		{"https://www.gov.uk/guidance", model.TierTertiary, "bare gov.uk without configuration"},
		{"https://service.gov.au/page", model.TierPrimary, "country .gov. second level"},
		{"https://random-blog.example/post", model.TierTertiary, "default tertiary"},
		{"https://example.gov:8443/page", model.TierPrimary, "port ignored"},
		{"not a url", model.TierTertiary, "invalid URL"},
		{"", model.TierTertiary, "empty URL"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.url); got != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, got)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		input    string
		expected model.AuthorityTier
	}{
		{"primary", model.TierPrimary},
		{"PRIMARY", model.TierPrimary},
		{"1", model.TierPrimary},
		{"secondary", model.TierSecondary},
		{" 2 ", model.TierSecondary},
		{"tertiary", model.TierTertiary},
		{"3", model.TierTertiary},
		{"unknown", model.TierTertiary},
		{"", model.TierTertiary},
	}

	for _, tt := range tests {
		if got := ParseTier(tt.input); got != tt.expected {
			t.Errorf("ParseTier(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNewAuthorityClassifier_NilConfig(t *testing.T) {
	classifier := NewAuthorityClassifier(nil)

	if got := classifier.Classify("https://arxiv.org/abs/1234"); got != model.TierPrimary {
		t.Errorf("Expected default config to mark arxiv.org primary, got %v", got)
	}
	if got := classifier.Classify("https://en.wikipedia.org/wiki/Go"); got != model.TierSecondary {
		t.Errorf("Expected default config to mark wikipedia secondary, got %v", got)
	}
}
