package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/truthlayer/internal/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"reports/q3 market.md", "q3-market"},
		{"/tmp/a:b*c?.txt", "a_b_c_"},
		{"plain", "plain"},
		{"", "report"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := sanitizeFilename(strings.Repeat("x", 300) + ".md")
	if len(long) != 100 {
		t.Errorf("Expected name capped at 100 chars, got %d", len(long))
	}
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	if err := os.WriteFile(path, []byte("# Report"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readInput(nil, path, 0)
	if err != nil || got != "# Report" {
		t.Errorf("readInput(file) = %q, %v", got, err)
	}

	got, err = readInput(strings.NewReader("from stdin"), "-", 100)
	if err != nil || got != "from stdin" {
		t.Errorf("readInput(stdin) = %q, %v", got, err)
	}

	if _, err := readInput(strings.NewReader("0123456789"), "-", 5); err == nil {
		t.Error("Expected size limit error")
	}
	if _, err := readInput(nil, filepath.Join(t.TempDir(), "missing.md"), 0); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestApplyEnvKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("FIRECRAWL_API_KEY", "fc-key")

	tests := []struct {
		provider    string
		wantKey     string
		wantBaseURL string
	}{
		{"openai", "sk-openai", ""},
		{"claude", "sk-ant", ""},
		{"ollama", "", "http://ollama:11434"},
	}
	for _, tt := range tests {
		cfg := model.DefaultConfig()
		cfg.LLM.Provider = tt.provider
		applyEnvKeys(cfg)

		if cfg.LLM.APIKey != tt.wantKey || cfg.LLM.BaseURL != tt.wantBaseURL {
			t.Errorf("%s: got key=%q base=%q", tt.provider, cfg.LLM.APIKey, cfg.LLM.BaseURL)
		}
		if cfg.Fetch.FirecrawlAPIKey != "fc-key" {
			t.Errorf("%s: expected firecrawl key from env", tt.provider)
		}
	}

	// An explicit key wins over the environment
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "from-config"
	applyEnvKeys(cfg)
	if cfg.LLM.APIKey != "from-config" {
		t.Errorf("Expected configured key to be kept, got %q", cfg.LLM.APIKey)
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	if err := requireCredentials(cfg); err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("Expected missing ANTHROPIC_API_KEY error, got %v", err)
	}

	cfg.LLM.Provider = "ollama"
	if err := requireCredentials(cfg); err != nil {
		t.Errorf("Expected ollama to need no key, got %v", err)
	}
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	noCache = true
	t.Cleanup(func() { noCache = false })

	t.Setenv("TRUTHLAYER_LLM_MODEL", "gpt-test")
	t.Setenv("TRUTHLAYER_HTTP_TIMEOUT", "45s")
	t.Setenv("TRUTHLAYER_CONCURRENCY_VERIFY_WORKERS", "9")
	t.Setenv("TRUTHLAYER_LLM_API_KEY", "sk-env")

	if err := registerDefaults(model.DefaultConfig()); err != nil {
		t.Fatalf("registerDefaults failed: %v", err)
	}
	viper.SetEnvPrefix("TRUTHLAYER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.LLM.Model != "gpt-test" {
		t.Errorf("Expected model from env, got %q", cfg.LLM.Model)
	}
	if cfg.HTTP.Timeout != 45*time.Second {
		t.Errorf("Expected 45s timeout, got %v", cfg.HTTP.Timeout)
	}
	if cfg.Concurrency.VerifyWorkers != 9 {
		t.Errorf("Expected 9 verify workers, got %d", cfg.Concurrency.VerifyWorkers)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("Expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Cache.Enabled {
		t.Error("Expected --no-cache to disable the cache")
	}

	// Untouched keys keep their defaults
	def := model.DefaultConfig()
	if cfg.Scoring != def.Scoring || cfg.Fetch.MaxAttempts != def.Fetch.MaxAttempts {
		t.Errorf("Expected defaults preserved, got scoring=%+v attempts=%d", cfg.Scoring, cfg.Fetch.MaxAttempts)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".truthlayer", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# TruthLayer Configuration File") {
		t.Error("Expected header comment")
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.Scoring.ContradictionCeiling != 0.5 {
		t.Errorf("Unexpected config %+v", cfg)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected refusal to overwrite existing config")
	}
}
