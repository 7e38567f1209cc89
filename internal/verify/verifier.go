package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/truthlayer/internal/llm"
	"github.com/ppiankov/truthlayer/internal/logging"
	"github.com/ppiankov/truthlayer/internal/model"
	"golang.org/x/sync/errgroup"
)

const noContentRationale = "no source content available"

// Judge is the slice of the language-model capability the verifier needs
type Judge interface {
	Judge(ctx context.Context, req llm.JudgeRequest) (*llm.Judgment, error)
}

// outcome records how a verdict was reached
type outcome int

const (
	outcomeNoContent  outcome = iota // judge not called
	outcomeJudged                    // judge answered (possibly with an invalid label)
	outcomeCallFailed                // judge call itself failed
)

// ClaimVerifier judges claims against their fetched sources
type ClaimVerifier struct {
	judge   Judge
	workers int
	logger  *slog.Logger
}

// NewClaimVerifier creates a verifier running at most workers judge calls at once
func NewClaimVerifier(judge Judge, workers int) *ClaimVerifier {
	if workers <= 0 {
		workers = 1
	}
	return &ClaimVerifier{judge: judge, workers: workers, logger: logging.New("verify")}
}

// Verify produces the verdict for one claim. The only error returned is the
// context's; every other failure degrades the verdict to UNVERIFIABLE.
func (v *ClaimVerifier) Verify(ctx context.Context, claim model.Claim, sources map[string]*model.Source) (model.Verdict, error) {
	verdict, _, err := v.verify(ctx, claim, sources)
	return verdict, err
}

// VerifyAll judges every claim concurrently. Verdicts are returned in claim order.
// If every claim that reached the judge failed at the call level, it returns
// model.ErrJudgmentUnavailable.
func (v *ClaimVerifier) VerifyAll(ctx context.Context, claims []model.Claim, sources map[string]*model.Source) ([]model.Verdict, error) {
	verdicts := make([]model.Verdict, len(claims))
	outcomes := make([]outcome, len(claims))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	for i := range claims {
		g.Go(func() error {
			verdict, out, err := v.verify(gctx, claims[i], sources)
			if err != nil {
				return err
			}
			verdicts[i] = verdict
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attempted, failed := 0, 0
	for _, out := range outcomes {
		switch out {
		case outcomeJudged:
			attempted++
		case outcomeCallFailed:
			attempted++
			failed++
		}
	}
	if attempted > 0 && failed == attempted {
		return nil, fmt.Errorf("%w: all %d judge calls failed", model.ErrJudgmentUnavailable, failed)
	}
	if failed > 0 {
		v.logger.Warn("some judge calls failed", "failed", failed, "attempted", attempted)
	}

	return verdicts, nil
}

func (v *ClaimVerifier) verify(ctx context.Context, claim model.Claim, sources map[string]*model.Source) (model.Verdict, outcome, error) {
	evidence, used := composeEvidence(claim, sources)
	if len(used) == 0 {
		return model.Verdict{
			ClaimID:    claim.ID,
			Status:     model.StatusUnverifiable,
			Confidence: 0,
			Rationale:  noContentRationale,
		}, outcomeNoContent, nil
	}

	judgment, err := v.judge.Judge(ctx, llm.JudgeRequest{
		ClaimID:   claim.ID,
		Statement: claim.Statement,
		Question:  claim.VerificationQuestion,
		Evidence:  evidence,
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.Verdict{}, outcomeCallFailed, ctx.Err()
		}

		if errors.Is(err, llm.ErrMalformedOutput) {
			v.logger.Warn("unusable judgment", "claim", claim.ID, "error", err)
			return degraded(claim.ID, used, "judge returned unusable output: "+err.Error()), outcomeJudged, nil
		}

		v.logger.Warn("judge call failed", "claim", claim.ID, "error", err)
		return degraded(claim.ID, used, "judgment failed: "+err.Error()), outcomeCallFailed, nil
	}

	status, ok := model.ParseStatus(judgment.Status)
	if !ok {
		invalid := &model.InvalidJudgmentError{ClaimID: claim.ID, Label: judgment.Status}
		v.logger.Warn("invalid judgment", "claim", claim.ID, "error", invalid)
		return degraded(claim.ID, used, invalid.Error()), outcomeJudged, nil
	}

	return model.Verdict{
		ClaimID:         claim.ID,
		Status:          status,
		Confidence:      model.ClampConfidence(float64(judgment.Confidence)),
		Rationale:       strings.TrimSpace(judgment.Reasoning),
		SourcesUsed:     used,
		SourcesConflict: judgment.HasContradictions,
	}, outcomeJudged, nil
}

func degraded(claimID string, used []string, rationale string) model.Verdict {
	return model.Verdict{
		ClaimID:     claimID,
		Status:      model.StatusUnverifiable,
		Confidence:  0,
		Rationale:   rationale,
		SourcesUsed: used,
		Degraded:    true,
	}
}

// composeEvidence numbers the claim's usable sources as SOURCE [n] blocks
func composeEvidence(claim model.Claim, sources map[string]*model.Source) (string, []string) {
	var b strings.Builder
	var used []string

	for _, url := range claim.SourceURLs {
		src := sources[url]
		if !src.OK() {
			continue
		}
		if len(used) > 0 {
			b.WriteString("\n\n")
		}
		used = append(used, url)
		fmt.Fprintf(&b, "SOURCE [%d] %s:\n%s", len(used), url, src.Content)
	}

	return b.String(), used
}
