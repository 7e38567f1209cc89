package score

import (
	"errors"
	"fmt"

	"github.com/ppiankov/truthlayer/internal/model"
)

// ErrNoVerdicts is returned when there is nothing to aggregate
var ErrNoVerdicts = errors.New("no verdicts to score")

// Confidence bands
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Scorer aggregates per-claim verdicts into a trust report
type Scorer struct {
	cfg model.ScoringConfig
}

// NewScorer creates a scorer using the given weights and penalties
func NewScorer(cfg model.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Weight returns the weight applied to a verdict of the given status
func (s *Scorer) Weight(status model.Status) float64 {
	switch status {
	case model.StatusSupported:
		return s.cfg.SupportedWeight
	case model.StatusPartiallySupported:
		return s.cfg.PartialWeight
	case model.StatusContradicted:
		return s.cfg.ContradictedPenalty
	default:
		return s.cfg.UnverifiableWeight
	}
}

// Score calculates the trust score and diagnostic signals.
// The result is a pure function of its input; ID and GeneratedAt are left empty.
func (s *Scorer) Score(results []model.ClaimResult) (*model.TrustReport, error) {
	if len(results) == 0 {
		return nil, ErrNoVerdicts
	}

	counts := model.NewStatusCounts()
	var (
		sum          float64
		conflicts    int
		degraded     int
		contradicted bool
	)
	for _, r := range results {
		v := r.Verdict
		counts[v.Status]++
		sum += s.Weight(v.Status) * model.ClampConfidence(v.Confidence)
		if v.SourcesConflict {
			conflicts++
		}
		if v.Degraded {
			degraded++
		}
		if v.Status == model.StatusContradicted {
			contradicted = true
		}
	}

	n := len(results)
	base := sum / float64(n)
	signals := []model.Signal{s.weightedMeanSignal(base, n, counts)}

	score := base

	// 1. Source-conflict penalty
	if conflicts > 0 {
		penalty := min(float64(conflicts)*s.cfg.SourceConflictPenalty, s.cfg.MaxSourceConflictPenalty)
		score -= penalty
		signals = append(signals, model.Signal{
			Type:        model.SignalSourceConflict,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Sources disagree for %d of %d claims", conflicts, n),
			Data: map[string]interface{}{
				"claims":      conflicts,
				"per_claim":   s.cfg.SourceConflictPenalty,
				"max_penalty": s.cfg.MaxSourceConflictPenalty,
				"penalty":     penalty,
				"formula":     "min(conflicting_claims * per_claim, max_penalty)",
			},
		})
	}

	// 2. Contradiction ceiling
	if contradicted {
		capped := score > s.cfg.ContradictionCeiling
		if capped {
			score = s.cfg.ContradictionCeiling
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalContradictionCeiling,
			Severity:    model.SeverityCritical,
			Description: fmt.Sprintf("%d claims contradicted by their sources; score capped at %.2f", counts[model.StatusContradicted], s.cfg.ContradictionCeiling),
			Data: map[string]interface{}{
				"contradicted": counts[model.StatusContradicted],
				"ceiling":      s.cfg.ContradictionCeiling,
				"applied":      capped,
				"formula":      "min(score, ceiling) when any claim is CONTRADICTED",
			},
		})
	}

	if unverifiable := counts[model.StatusUnverifiable]; unverifiable > 0 {
		ratio := float64(unverifiable) / float64(n)
		severity := model.SeverityInfo
		if ratio >= 0.5 {
			severity = model.SeverityWarning
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalUnverifiableRatio,
			Severity:    severity,
			Description: fmt.Sprintf("Unverifiable claims: %d/%d (%.0f%%)", unverifiable, n, ratio*100),
			Data: map[string]interface{}{
				"unverifiable": unverifiable,
				"total":        n,
				"ratio":        ratio,
				"formula":      "unverifiable_count / claim_count",
			},
		})
	}

	if degraded > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalDegradedVerdicts,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d verdicts forced to UNVERIFIABLE by judgment errors", degraded),
			Data: map[string]interface{}{
				"degraded": degraded,
				"total":    n,
			},
		})
	}

	score = clamp(score)

	return &model.TrustReport{
		Score:             score,
		Confidence:        band(score, contradicted),
		ClaimCount:        n,
		Counts:            counts,
		HasContradictions: contradicted || conflicts > 0,
		Results:           append([]model.ClaimResult(nil), results...),
		Signals:           signals,
	}, nil
}

func (s *Scorer) weightedMeanSignal(base float64, n int, counts model.StatusCounts) model.Signal {
	severity := model.SeverityInfo
	if base < 0.5 {
		severity = model.SeverityWarning
	}
	return model.Signal{
		Type:        model.SignalWeightedMean,
		Severity:    severity,
		Description: fmt.Sprintf("Weighted mean of %d verdicts: %.2f", n, base),
		Data: map[string]interface{}{
			"claims":              n,
			"mean":                base,
			"supported":           counts[model.StatusSupported],
			"partially_supported": counts[model.StatusPartiallySupported],
			"unverifiable":        counts[model.StatusUnverifiable],
			"contradicted":        counts[model.StatusContradicted],
			"weights": map[string]float64{
				string(model.StatusSupported):          s.cfg.SupportedWeight,
				string(model.StatusPartiallySupported): s.cfg.PartialWeight,
				string(model.StatusUnverifiable):       s.cfg.UnverifiableWeight,
				string(model.StatusContradicted):       s.cfg.ContradictedPenalty,
			},
			"formula": "sum(weight(status) * confidence) / claim_count",
		},
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// band determines the confidence level of the score
func band(score float64, contradicted bool) string {
	if contradicted {
		return ConfidenceLow
	}
	if score >= 0.8 {
		return ConfidenceHigh
	} else if score >= 0.5 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}
