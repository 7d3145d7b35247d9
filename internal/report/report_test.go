package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assaykit/domain/assay"
	"assaykit/domain/core"
	"assaykit/internal/errors"
)

func sampleRun() *assay.AnalysisRun {
	pair := assay.TukeyPairResult{Group1: "control", Group2: "drug", MeanDiff: 9, HSD: 2.2, QValue: 15.6, PValue: 0.0001, Significant: true, Significance: "***"}
	return &assay.AnalysisRun{
		ID:        core.RunID("run-42"),
		CreatedAt: core.Now(),
		Fit: assay.FitResult{
			Params:      assay.FourPLParams{A: 0.1, B: 1.5, C: 50, D: 2},
			RSquared:    0.9995,
			Points:      16,
			Iterations:  37,
			Termination: assay.TerminationConverged,
		},
		Dilution: 2,
		Days:     []string{"1", "3"},
		Cells: []assay.CellSummary{
			{Condition: "control", Day: "1", Summary: assay.Summary{N: 3, Mean: 2, SD: 1}},
		},
		Concentrations: []assay.QuantifiedSample{
			{Concentration: assay.Concentration{Status: assay.InverseOK}},
			{Concentration: assay.Concentration{Status: assay.InverseOutOfRange}},
		},
		Analyses: map[string]assay.DayAnalysis{
			"1": {
				Day:    "1",
				Groups: []string{"control", "drug"},
				ANOVA:  assay.ANOVAResult{FValue: 81, PValue: 0.00002, Method: "Unpaired t-test"},
			},
			"3": {
				Day:              "3",
				Groups:           []string{"control", "drug", "vehicle"},
				ANOVA:            assay.ANOVAResult{FValue: 12, PValue: 0.008, Method: "One-way ANOVA", Significant: true},
				TukeyResults:     []assay.TukeyPairResult{pair},
				SignificantPairs: []assay.TukeyPairResult{pair},
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleRun())

	assert.Contains(t, md, "# Assay report")
	assert.Contains(t, md, "`run-42`")
	assert.Contains(t, md, "Dilution factor: 2")
	assert.Contains(t, md, "### Day 1")
	assert.Contains(t, md, "### Day 3")
	assert.Contains(t, md, "Unpaired t-test on control, drug")
	assert.Contains(t, md, "One-way ANOVA on control, drug, vehicle")
	assert.Contains(t, md, "Significant pairs: control vs drug (`***`)")
	assert.Contains(t, md, "No significant pairs.")
	assert.Contains(t, md, "1 of 2 samples fell outside the curve")
	assert.Less(t, strings.Index(md, "### Day 1"), strings.Index(md, "### Day 3"))
}

func TestMarkdownNilRun(t *testing.T) {
	assert.Equal(t, msgNoRun+"\n", Markdown(nil))
}

func TestHTML(t *testing.T) {
	out := HTML(sampleRun())

	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "run-42")
}

func TestRender(t *testing.T) {
	run := sampleRun()

	md, err := Render(run, "")
	require.NoError(t, err)
	assert.Equal(t, Markdown(run), md)

	out, err := Render(run, "HTML")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")

	_, err = Render(run, "pdf")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestDayTable(t *testing.T) {
	out := DayTable(sampleRun()).Render()
	assert.Contains(t, out, "One-way ANOVA")
	assert.Contains(t, out, "Unpaired t-test")
}
