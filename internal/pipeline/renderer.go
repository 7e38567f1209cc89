package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/ppiankov/truthlayer/internal/model"
)

const footer = "_Generated by truthlayer. Verdicts are model judgments over the cited sources, not ground truth._"

// Renderer writes trust reports as JSON, Markdown and terminal summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON encodes the report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.TrustReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RenderJSON writes the report as JSON to path
func (r *Renderer) RenderJSON(report *model.TrustReport, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes the report as Markdown to path
func (r *Renderer) RenderMarkdown(report *model.TrustReport, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(report))
		return err
	})
}

// Markdown renders the full report
func (r *Renderer) Markdown(report *model.TrustReport) string {
	var b strings.Builder

	b.WriteString("# Trust Report\n\n")
	if report.ID != "" {
		fmt.Fprintf(&b, "- **Report:** `%s`\n", report.ID)
	}
	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- **Generated:** %s\n", report.GeneratedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- **Trust score:** %.0f/100 (%s confidence)\n", report.ScorePercent(), report.Confidence)
	fmt.Fprintf(&b, "- **Claims:** %d\n", report.ClaimCount)
	if report.HasContradictions {
		b.WriteString("- **Contradictions:** yes\n")
	}

	b.WriteString("\n## Status distribution\n\n")
	b.WriteString(statusTable(report).RenderMarkdown())
	b.WriteString("\n\n## Claims\n\n")
	b.WriteString(claimTable(report, 0).RenderMarkdown())
	b.WriteString("\n")

	for _, res := range report.Results {
		c, v := res.Claim, res.Verdict
		fmt.Fprintf(&b, "\n### %d. %s\n\n", c.Index+1, c.Statement)
		fmt.Fprintf(&b, "- **Verdict:** %s (confidence %.2f)\n", v.Status, v.Confidence)
		if c.VerificationQuestion != "" {
			fmt.Fprintf(&b, "- **Question:** %s\n", c.VerificationQuestion)
		}
		if v.Rationale != "" {
			fmt.Fprintf(&b, "- **Rationale:** %s\n", v.Rationale)
		}
		if v.SourcesConflict {
			b.WriteString("- **Note:** cited sources disagree with each other\n")
		}
		if v.Degraded {
			b.WriteString("- **Note:** verdict forced to UNVERIFIABLE by a judgment error\n")
		}
		b.WriteString("- **Sources:**\n")
		for _, u := range c.SourceURLs {
			fmt.Fprintf(&b, "  - %s\n", u)
		}
	}

	if len(report.Sources) > 0 {
		b.WriteString("\n## Sources\n\n")
		b.WriteString(sourceTable(report).RenderMarkdown())
		b.WriteString("\n")
	}

	if len(report.Signals) > 0 {
		b.WriteString("\n## Signals\n\n")
		for _, s := range report.Signals {
			fmt.Fprintf(&b, "- **%s** [%s]: %s\n", s.Type, s.Severity, s.Description)
			if f, ok := s.Data["formula"].(string); ok {
				fmt.Fprintf(&b, "  - formula: `%s`\n", f)
			}
		}
	}

	if r.includeFooter {
		b.WriteString("\n---\n\n")
		b.WriteString(footer)
		b.WriteString("\n")
	}

	return b.String()
}

// RenderSummary prints a terminal summary of the report
func (r *Renderer) RenderSummary(w io.Writer, report *model.TrustReport) {
	fmt.Fprintf(w, "Trust score: %.0f/100 (%s confidence)\n", report.ScorePercent(), report.Confidence)
	if report.HasContradictions {
		fmt.Fprintln(w, "⚠ Contradictions detected")
	}
	fmt.Fprintln(w)

	claims := claimTable(report, 60)
	claims.SetStyle(table.StyleLight)
	fmt.Fprintln(w, claims.Render())

	status := statusTable(report)
	status.SetStyle(table.StyleLight)
	fmt.Fprintln(w, status.Render())

	for _, s := range report.Signals {
		if s.Severity == model.SeverityInfo {
			continue
		}
		fmt.Fprintf(w, "[%s] %s\n", s.Severity, s.Description)
	}
}

func statusTable(report *model.TrustReport) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Status", "Claims", "Share"})
	for _, s := range model.AllStatuses {
		n := report.Counts[s]
		share := 0.0
		if report.ClaimCount > 0 {
			share = float64(n) / float64(report.ClaimCount) * 100
		}
		t.AppendRow(table.Row{s, n, fmt.Sprintf("%.0f%%", share)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return t
}

func claimTable(report *model.TrustReport, maxWidth int) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Claim", "Verdict", "Confidence", "Sources"})
	for _, res := range report.Results {
		t.AppendRow(table.Row{
			res.Claim.Index + 1,
			res.Claim.Statement,
			res.Verdict.Status,
			fmt.Sprintf("%.2f", res.Verdict.Confidence),
			fmt.Sprintf("%d/%d", len(res.Verdict.SourcesUsed), len(res.Claim.SourceURLs)),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: maxWidth},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return t
}

func sourceTable(report *model.TrustReport) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"URL", "Authority", "Fetched", "Chars", "Cited by"})
	for _, s := range report.Sources {
		outcome := "ok"
		if !s.OK {
			outcome = string(s.ErrorKind)
		}
		t.AppendRow(table.Row{s.URL, s.Authority, outcome, s.Chars, s.CitedBy})
	}
	return t
}

// writeFile creates path (and its directory) and writes through fn
func writeFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
