package model

import "strings"

// Status is the support classification assigned to a claim
type Status string

const (
	StatusSupported          Status = "SUPPORTED"
	StatusPartiallySupported Status = "PARTIALLY_SUPPORTED"
	StatusContradicted       Status = "CONTRADICTED"
	StatusUnverifiable       Status = "UNVERIFIABLE"
)

// AllStatuses lists every status in display order
var AllStatuses = []Status{
	StatusSupported,
	StatusPartiallySupported,
	StatusContradicted,
	StatusUnverifiable,
}

// ParseStatus coerces a free-form judge label into a Status.
// Only the four labels are accepted (case-insensitive, spaces or hyphens
// standing in for underscores); anything else returns false.
func ParseStatus(label string) (Status, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	for _, s := range AllStatuses {
		if normalized == string(s) {
			return s, true
		}
	}
	return "", false
}

// Verdict is the judgment for exactly one claim
type Verdict struct {
	ClaimID         string   `json:"claim_id"`
	Status          Status   `json:"status"`
	Confidence      float64  `json:"confidence"` // Clamped to [0,1]
	Rationale       string   `json:"rationale"`
	SourcesUsed     []string `json:"sources_used,omitempty"` // URLs whose content reached the judge
	SourcesConflict bool     `json:"sources_conflict"`       // Cited sources disagree with each other
	Degraded        bool     `json:"degraded,omitempty"`     // Forced to UNVERIFIABLE by a recoverable error
}

// ClaimResult pairs a claim with its verdict for display
type ClaimResult struct {
	Claim   Claim   `json:"claim"`
	Verdict Verdict `json:"verdict"`
}

// ClampConfidence bounds a confidence value to [0,1], mapping NaN to 0
func ClampConfidence(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
