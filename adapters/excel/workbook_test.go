package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"assaykit/domain/assay"
	"assaykit/domain/core"
	"assaykit/internal"
	"assaykit/internal/errors"
)

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(os.Stderr, internal.LogLevelError)
}

func TestWorkbookPlateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.xlsx")
	plate := &assay.Plate{
		Standards: []assay.DataPoint{{X: 0, Y: 0.1}, {X: 10, Y: 0.5}, {X: 100, Y: 1.8}},
		Samples: []assay.Sample{
			{Condition: "control", Day: "1", Absorbance: 0.4},
			{Condition: "drug", Day: "3", Absorbance: 1.2},
		},
	}

	require.NoError(t, NewWorkbookWriter(quietLogger()).WritePlate(path, plate))

	got, err := NewWorkbookReader(path, quietLogger()).ReadPlate()
	require.NoError(t, err)
	require.Len(t, got.Standards, 3)
	require.Len(t, got.Samples, 2)
	assert.InDelta(t, 100.0, got.Standards[2].X, 1e-9)
	assert.InDelta(t, 1.8, got.Standards[2].Y, 1e-9)
	assert.Equal(t, "drug", got.Samples[1].Condition)
	assert.Equal(t, "3", got.Samples[1].Day)
	assert.InDelta(t, 1.2, got.Samples[1].Absorbance, 1e-9)
}

func TestReadPlateSkipsBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetStandards))
	require.NoError(t, f.SetSheetRow(SheetStandards, "A1", &[]interface{}{"CONC", "OD"}))
	require.NoError(t, f.SetSheetRow(SheetStandards, "A2", &[]interface{}{1.0, 0.2}))
	require.NoError(t, f.SetSheetRow(SheetStandards, "A3", &[]interface{}{"n/a", 0.3}))
	require.NoError(t, f.SetSheetRow(SheetStandards, "A4", &[]interface{}{5.0, 0.9}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	plate, err := NewWorkbookReader(path, quietLogger()).ReadPlate()
	require.NoError(t, err)
	assert.Len(t, plate.Standards, 2)
	assert.Empty(t, plate.Samples)
}

func TestReadPlateMissingStandardsSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := NewWorkbookReader(path, quietLogger()).ReadPlate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeWorkbookError, errors.GetCode(err))
}

func TestReadPlateMissingFile(t *testing.T) {
	_, err := NewWorkbookReader(filepath.Join(t.TempDir(), "nope.xlsx"), quietLogger()).ReadPlate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeWorkbookError, errors.GetCode(err))
}

func TestReadCSVPlate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.csv")
	content := "Kind,Concentration,Condition,Day,Absorbance\n" +
		"standard,0,,,0.1\n" +
		"standard,50,,,1.05\n" +
		"sample,,control,1,0.6\n" +
		"sample,,drug,1,\n" +
		"control,,x,1,0.2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	plate, err := NewWorkbookReader(path, quietLogger()).ReadPlate()
	require.NoError(t, err)
	require.Len(t, plate.Standards, 2)
	assert.InDelta(t, 50.0, plate.Standards[1].X, 1e-12)
	require.Len(t, plate.Samples, 1)
	assert.Equal(t, assay.Sample{Condition: "control", Day: "1", Absorbance: 0.6}, plate.Samples[0])
}

func TestReadCSVRequiresKindColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.csv")
	require.NoError(t, os.WriteFile(path, []byte("Concentration,Absorbance\n1,0.2\n"), 0o644))

	_, err := NewWorkbookReader(path, quietLogger()).ReadPlate()
	require.Error(t, err)
}

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	run := &assay.AnalysisRun{
		ID:        core.NewRunID(),
		CreatedAt: core.Now(),
		Fit: assay.FitResult{
			Params:   assay.FourPLParams{A: 0.1, B: 1.5, C: 50, D: 2},
			RSquared: 0.999,
			Points:   8,
		},
		Dilution: 1,
		Days:     []string{"1"},
		Concentrations: []assay.QuantifiedSample{
			{Sample: assay.Sample{Condition: "a", Day: "1", Absorbance: 1}, Concentration: assay.Concentration{Absorbance: 1, Value: 42, Status: assay.InverseOK}},
			{Sample: assay.Sample{Condition: "b", Day: "1", Absorbance: 5}, Concentration: assay.Concentration{Absorbance: 5, Status: assay.InverseOutOfRange}},
		},
		Analyses: map[string]assay.DayAnalysis{
			"1": {
				Day:    "1",
				Groups: []string{"a", "b", "c"},
				ANOVA:  assay.ANOVAResult{FValue: 12, PValue: 0.008, DfBetween: 2, DfWithin: 6, Method: "One-way ANOVA"},
				TukeyResults: []assay.TukeyPairResult{
					{Group1: "a", Group2: "b", MeanDiff: 3, HSD: 2, PValue: 0.01, Significance: "*"},
				},
			},
		},
	}

	require.NoError(t, NewWorkbookWriter(quietLogger()).WriteResults(path, run))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetFit, SheetConcentrations, SheetStatistics}, f.GetSheetList())

	fit, err := f.GetRows(SheetFit)
	require.NoError(t, err)
	assert.Equal(t, []string{"Parameter", "Value"}, fit[0])
	assert.Equal(t, run.ID.String(), fit[1][1])

	conc, err := f.GetRows(SheetConcentrations)
	require.NoError(t, err)
	require.Len(t, conc, 3)
	assert.Equal(t, "ok", conc[1][4])
	assert.Equal(t, "out_of_range", conc[2][4])

	stats, err := f.GetRows(SheetStatistics)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "One-way ANOVA", stats[1][1])
	assert.Equal(t, "**", stats[1][11])
	assert.Equal(t, "Tukey HSD", stats[2][1])
}
