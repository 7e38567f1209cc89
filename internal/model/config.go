package model

import (
	"fmt"
	"time"
)

// Config is the complete truthlayer configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Fetch        FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Extract      ExtractConfig      `yaml:"extract" mapstructure:"extract"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Authority    AuthorityConfig    `yaml:"authority" mapstructure:"authority"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
}

// HTTPConfig controls the direct HTTP source fetcher
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// FetchConfig controls source retrieval
type FetchConfig struct {
	Backend          string        `yaml:"backend" mapstructure:"backend"` // "http" or "firecrawl"
	MaxAttempts      int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxSourceChars   int           `yaml:"max_source_chars" mapstructure:"max_source_chars"`
	FirecrawlAPIKey  string        `yaml:"firecrawl_api_key,omitempty" mapstructure:"firecrawl_api_key"`
	FirecrawlBaseURL string        `yaml:"firecrawl_base_url,omitempty" mapstructure:"firecrawl_base_url"`
}

// ConcurrencyConfig bounds the two fan-out stages and batch processing
type ConcurrencyConfig struct {
	FetchWorkers  int `yaml:"fetch_workers" mapstructure:"fetch_workers"`
	VerifyWorkers int `yaml:"verify_workers" mapstructure:"verify_workers"`
	BatchWorkers  int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// RateLimitingConfig is the per-domain fetch rate limit
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls the cross-run source content cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

// LLMConfig selects and tunes the language-model provider
type LLMConfig struct {
	Provider        string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model           string  `yaml:"model" mapstructure:"model"`
	ExtractionModel string  `yaml:"extraction_model,omitempty" mapstructure:"extraction_model"`
	JudgmentModel   string  `yaml:"judgment_model,omitempty" mapstructure:"judgment_model"`
	APIKey          string  `yaml:"-" mapstructure:"api_key"`
	BaseURL         string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout         int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens       int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature     float32 `yaml:"temperature" mapstructure:"temperature"`
}

// ExtractConfig bounds claim extraction
type ExtractConfig struct {
	MaxReportChars int `yaml:"max_report_chars" mapstructure:"max_report_chars"`
	MaxClaims      int `yaml:"max_claims" mapstructure:"max_claims"` // 0 = unlimited
}

// ScoringConfig holds the tunable aggregation constants
type ScoringConfig struct {
	SupportedWeight          float64 `yaml:"supported_weight" mapstructure:"supported_weight"`
	PartialWeight            float64 `yaml:"partial_weight" mapstructure:"partial_weight"`
	UnverifiableWeight       float64 `yaml:"unverifiable_weight" mapstructure:"unverifiable_weight"`
	ContradictedPenalty      float64 `yaml:"contradicted_penalty" mapstructure:"contradicted_penalty"`
	ContradictionCeiling     float64 `yaml:"contradiction_ceiling" mapstructure:"contradiction_ceiling"`
	SourceConflictPenalty    float64 `yaml:"source_conflict_penalty" mapstructure:"source_conflict_penalty"`
	MaxSourceConflictPenalty float64 `yaml:"max_source_conflict_penalty" mapstructure:"max_source_conflict_penalty"`
}

// AuthorityConfig drives source authority classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// PathPattern maps a URL path regex to a tier name
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// OutputConfig controls rendering and logging
type OutputConfig struct {
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"`
	LogLevel      string `yaml:"log_level" mapstructure:"log_level"`   // debug, info, warn, error
	LogFormat     string `yaml:"log_format" mapstructure:"log_format"` // text, json
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxReportBytes int64         `yaml:"max_report_bytes" mapstructure:"max_report_bytes"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       20 * time.Second,
			UserAgent:     "truthlayer/0.1 (+https://github.com/ppiankov/truthlayer)",
			MaxBodyBytes:  4_000_000,
			RespectRobots: true,
		},
		Fetch: FetchConfig{
			Backend:          "http",
			MaxAttempts:      3,
			InitialBackoff:   time.Second,
			MaxSourceChars:   20_000,
			FirecrawlBaseURL: "https://api.firecrawl.dev",
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers:  4,
			VerifyWorkers: 4,
			BatchWorkers:  2,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "layered",
			Dir:     ".truthlayer-cache",
			TTL:     24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     60,
			MaxTokens:   4000,
			Temperature: 0.1,
		},
		Extract: ExtractConfig{
			MaxReportChars: 60_000,
		},
		Scoring: ScoringConfig{
			SupportedWeight:          1.0,
			PartialWeight:            0.5,
			UnverifiableWeight:       0.0,
			ContradictedPenalty:      -1.0,
			ContradictionCeiling:     0.5,
			SourceConflictPenalty:    0.05,
			MaxSourceConflictPenalty: 0.2,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"doi.org",
				"arxiv.org",
				"pubmed.ncbi.nlm.nih.gov",
				"ncbi.nlm.nih.gov",
				"legislation.gov.uk",
				"eur-lex.europa.eu",
				"who.int",
				"sec.gov",
			},
			SecondaryDomains: []string{
				"wikipedia.org",
				"britannica.com",
				"reuters.com",
				"apnews.com",
				"bbc.co.uk",
				"nature.com",
				"sciencedirect.com",
			},
		},
		Output: OutputConfig{
			IncludeFooter: true,
			LogLevel:      "info",
			LogFormat:     "text",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 5 * time.Minute,
			MaxReportBytes: 1 << 20,
		},
	}
}

// Validate checks that the configuration is usable.
// The scoring weights must keep SUPPORTED > PARTIALLY_SUPPORTED >
// UNVERIFIABLE >= 0 > CONTRADICTED.
func (c *Config) Validate() error {
	s := c.Scoring
	if !(s.SupportedWeight > s.PartialWeight) {
		return fmt.Errorf("scoring: supported_weight (%.2f) must exceed partial_weight (%.2f)", s.SupportedWeight, s.PartialWeight)
	}
	if !(s.PartialWeight > s.UnverifiableWeight) {
		return fmt.Errorf("scoring: partial_weight (%.2f) must exceed unverifiable_weight (%.2f)", s.PartialWeight, s.UnverifiableWeight)
	}
	if s.UnverifiableWeight < 0 {
		return fmt.Errorf("scoring: unverifiable_weight must not be negative")
	}
	if !(s.ContradictedPenalty < 0) {
		return fmt.Errorf("scoring: contradicted_penalty (%.2f) must be negative", s.ContradictedPenalty)
	}
	if s.ContradictionCeiling <= 0 || s.ContradictionCeiling > 1 {
		return fmt.Errorf("scoring: contradiction_ceiling must be in (0,1]")
	}
	if s.SourceConflictPenalty < 0 || s.MaxSourceConflictPenalty < 0 {
		return fmt.Errorf("scoring: source conflict penalties must not be negative")
	}

	if c.Concurrency.FetchWorkers <= 0 || c.Concurrency.VerifyWorkers <= 0 {
		return fmt.Errorf("concurrency: fetch_workers and verify_workers must be positive")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch: max_attempts must be positive")
	}

	switch c.Fetch.Backend {
	case "http", "":
	case "firecrawl":
		if c.Fetch.FirecrawlAPIKey == "" {
			return fmt.Errorf("fetch: firecrawl backend requires firecrawl_api_key (or FIRECRAWL_API_KEY)")
		}
	default:
		return fmt.Errorf("fetch: unknown backend %q (supported: http, firecrawl)", c.Fetch.Backend)
	}

	return nil
}
