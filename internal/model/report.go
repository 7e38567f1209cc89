package model

import "time"

// TrustReport is the terminal artifact of a verification run
type TrustReport struct {
	ID          string    `json:"id,omitempty"`           // Stamped by the pipeline
	GeneratedAt time.Time `json:"generated_at,omitempty"` // Stamped by the pipeline

	Score             float64      `json:"score"`      // Overall trust score in [0,1]
	Confidence        string       `json:"confidence"` // "low", "medium", "high"
	ClaimCount        int          `json:"claim_count"`
	Counts            StatusCounts `json:"counts"`
	HasContradictions bool         `json:"has_contradictions"` // Any claim CONTRADICTED or with conflicting sources

	Results []ClaimResult   `json:"results"`           // Ordered by claim index
	Sources []SourceSummary `json:"sources,omitempty"` // Per-URL fetch outcomes
	Signals []Signal        `json:"signals"`           // Transparent scoring breakdown
}

// StatusCounts holds the number of verdicts per status
type StatusCounts map[Status]int

// NewStatusCounts returns counts with every status present at zero
func NewStatusCounts() StatusCounts {
	counts := make(StatusCounts, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	return counts
}

// ScorePercent returns the score on a 0-100 scale for display
func (r *TrustReport) ScorePercent() float64 {
	return r.Score * 100
}

// Verdicts returns the verdicts in claim order
func (r *TrustReport) Verdicts() []Verdict {
	verdicts := make([]Verdict, len(r.Results))
	for i, res := range r.Results {
		verdicts[i] = res.Verdict
	}
	return verdicts
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalWeightedMean         SignalType = "weighted_mean"         // Mean of weight*confidence
	SignalContradictionCeiling SignalType = "contradiction_ceiling" // Cap applied for contradicted claims
	SignalSourceConflict       SignalType = "source_conflict"       // Sources disagreeing among themselves
	SignalUnverifiableRatio    SignalType = "unverifiable_ratio"    // Claims without usable evidence
	SignalDegradedVerdicts     SignalType = "degraded_verdicts"     // Verdicts forced by recoverable errors
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
