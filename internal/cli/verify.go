package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/ppiankov/truthlayer/internal/model"
	"github.com/ppiankov/truthlayer/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outJSON       string
	outMD         string
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <report-file|->",
	Short: "Verify the claims of a single report",
	Long: `Verify reads a research report (Markdown or plain text), extracts its
claims with their cited URLs, fetches every cited source once, judges each
claim against its sources and prints a trust summary.

Use "-" to read the report from stdin.

Example:
  truthlayer verify report.md
  truthlayer verify report.md --json trust.json --md trust.md
  cat report.md | truthlayer verify - --llm-provider anthropic --llm-model claude-sonnet-4-5`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	// Output flags
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 10*time.Minute, "overall verification timeout (0 = none)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireCredentials(cfg); err != nil {
		return err
	}

	text, err := readInput(cmd.InOrStdin(), args[0], cfg.Server.MaxReportBytes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if verifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, verifyTimeout)
		defer cancel()
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s (%d bytes)\n", args[0], len(text))
		fmt.Fprintf(os.Stderr, "LLM: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Fetch backend: %s, cache: %v\n", cfg.Fetch.Backend, cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	report, err := p.Run(ctx, text)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d claims\n", report.ClaimCount)
		fmt.Fprintf(os.Stderr, "✓ Checked %d sources\n", len(report.Sources))
		fmt.Fprintf(os.Stderr, "✓ Calculated trust score: %.0f/100\n", report.ScorePercent())
		fmt.Fprintln(os.Stderr)
	}

	return renderOutputs(cmd.OutOrStdout(), pipeline.NewRenderer(cfg.Output.IncludeFooter), report, outJSON, outMD, cfg.Output.Verbose)
}

// renderOutputs writes the requested artifacts and prints the summary
func renderOutputs(w io.Writer, r *pipeline.Renderer, report *model.TrustReport, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	r.RenderSummary(w, report)
	return nil
}

// readInput reads the report from a file or, for "-", from stdin
func readInput(stdin io.Reader, path string, maxBytes int64) (string, error) {
	var src io.Reader
	if path == "-" {
		src = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open report: %w", err)
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	if maxBytes > 0 {
		src = io.LimitReader(src, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("report exceeds %d bytes", maxBytes)
	}
	return string(data), nil
}
