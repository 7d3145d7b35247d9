// Package report renders analysis runs as Markdown, HTML or terminal tables.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/jedib0t/go-pretty/v6/table"

	"assaykit/adapters/stats/significance"
	"assaykit/domain/assay"
	"assaykit/internal/errors"
)

// Output formats
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

const msgNoRun = "No analysis data available"

// Render returns the run in the requested format.
func Render(run *assay.AnalysisRun, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", FormatMarkdown:
		return Markdown(run), nil
	case FormatHTML:
		return HTML(run), nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("unknown report format %q", format))
	}
}

// HTML converts the Markdown report with the common extensions, tables
// included.
func HTML(run *assay.AnalysisRun) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage, Title: "Assay report"})
	return string(markdown.ToHTML([]byte(Markdown(run)), p, r))
}

// Markdown renders the full report.
func Markdown(run *assay.AnalysisRun) string {
	if run == nil {
		return msgNoRun + "\n"
	}

	var b strings.Builder
	b.WriteString("# Assay report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", run.ID)
	fmt.Fprintf(&b, "- Created: %s\n", run.CreatedAt.Format())
	fmt.Fprintf(&b, "- Dilution factor: %g\n\n", run.Dilution)

	b.WriteString("## Standard curve\n\n")
	b.WriteString(FitTable(run.Fit).RenderMarkdown())
	b.WriteString("\n\n")
	if run.Fit.Degenerate {
		b.WriteString("Standards have no absorbance variance; R² is not informative.\n\n")
	}

	b.WriteString("## Concentrations\n\n")
	if len(run.Cells) == 0 {
		b.WriteString("No sample could be quantified.\n\n")
	} else {
		b.WriteString(CellTable(run.Cells).RenderMarkdown())
		b.WriteString("\n\n")
	}
	if n := outOfRange(run.Concentrations); n > 0 {
		fmt.Fprintf(&b, "%d of %d samples fell outside the curve and were excluded.\n\n", n, len(run.Concentrations))
	}

	b.WriteString("## Statistics\n\n")
	if len(run.Days) == 0 {
		b.WriteString("No day had two or more groups to compare.\n")
	}
	for _, day := range run.Days {
		a, ok := run.Analyses[day]
		if !ok {
			continue
		}
		writeDay(&b, a)
	}

	return b.String()
}

func writeDay(b *strings.Builder, a assay.DayAnalysis) {
	fmt.Fprintf(b, "### Day %s\n\n", a.Day)
	fmt.Fprintf(b, "%s on %s: F = %.4g, p = %.4g (`%s`)\n\n",
		a.ANOVA.Method, strings.Join(a.Groups, ", "), a.ANOVA.FValue, a.ANOVA.PValue, significance.SignificanceTier(a.ANOVA.PValue))

	if len(a.TukeyResults) > 0 {
		b.WriteString(TukeyTable(a.TukeyResults).RenderMarkdown())
		b.WriteString("\n\n")
	}

	if len(a.SignificantPairs) == 0 {
		b.WriteString("No significant pairs.\n\n")
		return
	}
	pairs := make([]string, len(a.SignificantPairs))
	for i, p := range a.SignificantPairs {
		pairs[i] = fmt.Sprintf("%s vs %s (`%s`)", p.Group1, p.Group2, p.Significance)
	}
	fmt.Fprintf(b, "Significant pairs: %s\n\n", strings.Join(pairs, "; "))
}

// FitTable lists the fitted parameters and fit quality.
func FitTable(fit assay.FitResult) table.Writer {
	tbl := table.NewWriter()
	tbl.AppendHeader(table.Row{"Parameter", "Value"})
	tbl.AppendRows([]table.Row{
		{"A (zero dose)", fmt.Sprintf("%.6g", fit.Params.A)},
		{"B (slope)", fmt.Sprintf("%.6g", fit.Params.B)},
		{"C (EC50)", fmt.Sprintf("%.6g", fit.Params.C)},
		{"D (infinite dose)", fmt.Sprintf("%.6g", fit.Params.D)},
		{"R²", fmt.Sprintf("%.6f", fit.RSquared)},
		{"SSR", fmt.Sprintf("%.4g", fit.SSR)},
		{"Points", fit.Points},
		{"Iterations", fit.Iterations},
		{"Termination", string(fit.Termination)},
	})
	return tbl
}

// CellTable summarizes concentrations per condition and day.
func CellTable(cells []assay.CellSummary) table.Writer {
	tbl := table.NewWriter()
	tbl.AppendHeader(table.Row{"Day", "Condition", "N", "Mean", "SD", "SEM", "Median"})
	for _, c := range cells {
		s := c.Summary
		tbl.AppendRow(table.Row{
			c.Day, c.Condition, s.N,
			fmt.Sprintf("%.4g", s.Mean), fmt.Sprintf("%.4g", s.SD),
			fmt.Sprintf("%.4g", s.SEM), fmt.Sprintf("%.4g", s.Median),
		})
	}
	return tbl
}

// TukeyTable lists pairwise comparisons.
func TukeyTable(pairs []assay.TukeyPairResult) table.Writer {
	tbl := table.NewWriter()
	tbl.AppendHeader(table.Row{"Group 1", "Group 2", "Mean Diff", "HSD", "q", "p", "Sig."})
	for _, p := range pairs {
		tbl.AppendRow(table.Row{
			p.Group1, p.Group2,
			fmt.Sprintf("%.4g", p.MeanDiff), fmt.Sprintf("%.4g", p.HSD),
			fmt.Sprintf("%.4g", p.QValue), fmt.Sprintf("%.4g", p.PValue),
			"`" + p.Significance + "`",
		})
	}
	return tbl
}

// DayTable is a one-line-per-day overview for terminals.
func DayTable(run *assay.AnalysisRun) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Day", "Method", "Groups", "F", "p", "Sig.", "Significant pairs"})
	for _, day := range run.Days {
		a, ok := run.Analyses[day]
		if !ok {
			continue
		}
		tbl.AppendRow(table.Row{
			day, a.ANOVA.Method, len(a.Groups),
			fmt.Sprintf("%.4g", a.ANOVA.FValue), fmt.Sprintf("%.4g", a.ANOVA.PValue),
			significance.SignificanceTier(a.ANOVA.PValue), len(a.SignificantPairs),
		})
	}
	return tbl
}

func outOfRange(samples []assay.QuantifiedSample) int {
	n := 0
	for _, q := range samples {
		if !q.Concentration.Ok() {
			n++
		}
	}
	return n
}
