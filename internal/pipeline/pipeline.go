package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/truthlayer/internal/cache"
	"github.com/ppiankov/truthlayer/internal/extract"
	"github.com/ppiankov/truthlayer/internal/fetch"
	"github.com/ppiankov/truthlayer/internal/llm"
	"github.com/ppiankov/truthlayer/internal/logging"
	"github.com/ppiankov/truthlayer/internal/model"
	"github.com/ppiankov/truthlayer/internal/score"
	"github.com/ppiankov/truthlayer/internal/verify"
)

// Pipeline stages, reported on *model.PipelineError
const (
	StageExtract = "extract"
	StageFetch   = "fetch"
	StageVerify  = "verify"
	StageScore   = "score"
)

// Pipeline orchestrates one verification run: extract, fetch, verify, score
type Pipeline struct {
	extractor *extract.ClaimExtractor
	sources   *SourceFetcher
	verifier  *verify.ClaimVerifier
	scorer    *score.Scorer
	closers   []io.Closer
	newID     func() string
	now       func() time.Time
}

// New creates a pipeline from its capabilities. Both the language-model
// capability and the fetcher are required.
func New(capability llm.Capability, fetcher fetch.Fetcher, cfg *model.Config) *Pipeline {
	return &Pipeline{
		extractor: extract.NewClaimExtractor(capability,
			extract.WithMaxReportChars(cfg.Extract.MaxReportChars),
			extract.WithMaxClaims(cfg.Extract.MaxClaims),
		),
		sources: NewSourceFetcher(fetcher,
			fetch.NewAuthorityClassifier(&cfg.Authority),
			cfg.Concurrency.FetchWorkers,
			cfg.Fetch.MaxSourceChars,
		),
		verifier: verify.NewClaimVerifier(capability, cfg.Concurrency.VerifyWorkers),
		scorer:   score.NewScorer(cfg.Scoring),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// NewFromConfig wires the configured LLM provider, content cache and fetch stack
func NewFromConfig(cfg *model.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	assistant := llm.NewAssistant(provider, cfg.LLM.ExtractionModel, cfg.LLM.JudgmentModel)

	contentCache, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("content cache: %w", err)
	}

	fetcher, err := fetch.NewFromConfig(cfg, contentCache)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	p := New(assistant, fetcher, cfg)
	if closer, ok := contentCache.(io.Closer); ok {
		p.closers = append(p.closers, closer)
	}

	logging.New("pipeline").Info("pipeline ready",
		"provider", assistant.ProviderName(),
		"fetch_backend", cfg.Fetch.Backend,
		"cache", cfg.Cache.Enabled)
	return p, nil
}

// Close releases resources held by the pipeline's backends
func (p *Pipeline) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run verifies the claims in reportText and returns the trust report.
// Every fatal condition is returned as a *model.PipelineError; no partial
// report is ever produced. Concurrent runs share no source state.
func (p *Pipeline) Run(ctx context.Context, reportText string) (*model.TrustReport, error) {
	logger := logging.New("pipeline")
	runID := p.newID()
	start := p.now()

	// 1. Extract claims
	claims, err := p.extractor.Extract(ctx, runID, reportText)
	if err != nil {
		return nil, &model.PipelineError{Stage: StageExtract, Err: err}
	}
	logger.Info("claims extracted", "run", runID, "claims", len(claims))

	// 2. Fetch every distinct source once
	sources, err := p.sources.FetchAll(ctx, claims, NewSourceCache())
	if err != nil {
		return nil, &model.PipelineError{Stage: StageFetch, Err: err}
	}

	// 3. Judge each claim against its sources
	verdicts, err := p.verifier.VerifyAll(ctx, claims, sources)
	if err != nil {
		return nil, &model.PipelineError{Stage: StageVerify, Err: err}
	}

	// 4. Aggregate
	results := make([]model.ClaimResult, len(claims))
	for i := range claims {
		results[i] = model.ClaimResult{Claim: claims[i], Verdict: verdicts[i]}
	}

	report, err := p.scorer.Score(results)
	if err != nil {
		return nil, &model.PipelineError{Stage: StageScore, Err: err}
	}

	report.ID = runID
	report.GeneratedAt = p.now().UTC()
	report.Sources = Summarize(claims, sources)

	logger.Info("run complete",
		"run", runID,
		"score", fmt.Sprintf("%.2f", report.Score),
		"confidence", report.Confidence,
		"duration", p.now().Sub(start).Round(time.Millisecond))
	return report, nil
}
