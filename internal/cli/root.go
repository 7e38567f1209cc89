package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/truthlayer/internal/logging"
	"github.com/ppiankov/truthlayer/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "dev"

var (
	cfgFile string
	verbose bool
	noCache bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "truthlayer",
	Short: "TruthLayer - claim verification for AI-generated research reports",
	Long: `TruthLayer checks what a research report claims against the sources it cites.

For every report it:
- Extracts verifiable claims together with their cited source URLs
- Fetches each cited source once
- Asks a language model whether each source supports, partially supports,
  or contradicts the claim
- Aggregates the verdicts into a transparent trust score

Verdicts are model judgments over the cited sources, not ground truth.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "truthlayer %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.truthlayer/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	pf.String("llm-model", "gpt-4o-mini", "LLM model name")
	pf.String("fetch-backend", "http", "source fetch backend (http, firecrawl)")
	pf.String("ua", "", "HTTP User-Agent for source fetches")
	pf.Bool("insecure", false, "skip TLS certificate verification for source fetches")
	pf.BoolVar(&noCache, "no-cache", false, "disable the source content cache")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"output.verbose":    "verbose",
		"output.log_level":  "log-level",
		"output.log_format": "log-format",
		"llm.provider":      "llm-provider",
		"llm.model":         "llm-model",
		"fetch.backend":     "fetch-backend",
		"http.user_agent":   "ua",
		"http.insecure_tls": "insecure",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering config defaults: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".truthlayer"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match TRUTHLAYER_*
	viper.SetEnvPrefix("TRUTHLAYER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}
}

// registerDefaults makes every config key known to viper so that
// TRUTHLAYER_SECTION_KEY environment variables apply to nested keys.
func registerDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var defaults map[string]interface{}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return err
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	// Keys omitted from the YAML form when empty
	for _, key := range []string{
		"llm.api_key", "llm.base_url", "llm.extraction_model", "llm.judgment_model",
		"fetch.firecrawl_api_key", "cache.redis_addr",
		"http.http_proxy", "http.https_proxy", "http.no_proxy",
	} {
		viper.SetDefault(key, "")
	}
	return nil
}

// loadConfig builds the effective configuration:
// flags > TRUTHLAYER_* env > config file > defaults, then provider key env vars.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if noCache {
		cfg.Cache.Enabled = false
	}
	applyEnvKeys(cfg)

	logging.Init(logging.ParseLevel(cfg.Output.LogLevel), cfg.Output.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvKeys fills credentials from the conventional provider variables
func applyEnvKeys(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Fetch.FirecrawlAPIKey == "" {
		cfg.Fetch.FirecrawlAPIKey = os.Getenv("FIRECRAWL_API_KEY")
	}
}

// requireCredentials fails early when the selected backends need a key that is missing
func requireCredentials(cfg *model.Config) error {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	}
	if strings.EqualFold(cfg.Fetch.Backend, "firecrawl") && cfg.Fetch.FirecrawlAPIKey == "" {
		return fmt.Errorf("FIRECRAWL_API_KEY environment variable not set")
	}
	return nil
}
