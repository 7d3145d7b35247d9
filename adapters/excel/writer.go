package excel

import (
	"fmt"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	"assaykit/adapters/stats/significance"
	"assaykit/domain/assay"
	"assaykit/internal"
	"assaykit/internal/errors"
)

// WorkbookWriter writes plate layouts and analysis results as xlsx
type WorkbookWriter struct {
	logger *internal.Logger
}

// NewWorkbookWriter creates a writer
func NewWorkbookWriter(logger *internal.Logger) *WorkbookWriter {
	return &WorkbookWriter{logger: internal.OrDefault(logger).With("WorkbookWriter")}
}

// WritePlate writes standards and samples in the layout ReadPlate expects
func (w *WorkbookWriter) WritePlate(path string, plate *assay.Plate) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetStandards); err != nil {
		return errors.WorkbookError("failed to name standards sheet", err)
	}
	rows := [][]interface{}{{"Concentration", "Absorbance"}}
	for _, p := range plate.Standards {
		rows = append(rows, []interface{}{p.X, p.Y})
	}
	if err := writeRows(f, SheetStandards, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSamples); err != nil {
		return errors.WorkbookError("failed to create samples sheet", err)
	}
	rows = [][]interface{}{{"Condition", "Day", "Absorbance"}}
	for _, s := range plate.Samples {
		rows = append(rows, []interface{}{s.Condition, s.Day, s.Absorbance})
	}
	if err := writeRows(f, SheetSamples, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return errors.WorkbookError(fmt.Sprintf("failed to save %s", path), err)
	}
	w.logger.Info("Plate written to %s (%d standards, %d samples)", path, len(plate.Standards), len(plate.Samples))
	return nil
}

// WriteResults writes the Fit, Concentrations and Statistics sheets
func (w *WorkbookWriter) WriteResults(path string, run *assay.AnalysisRun) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetFit); err != nil {
		return errors.WorkbookError("failed to name fit sheet", err)
	}
	if err := writeRows(f, SheetFit, fitRows(run)); err != nil {
		return err
	}

	for _, sheet := range []struct {
		name string
		rows [][]interface{}
	}{
		{SheetConcentrations, concentrationRows(run)},
		{SheetStatistics, statisticsRows(run)},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return errors.WorkbookError(fmt.Sprintf("failed to create sheet %s", sheet.name), err)
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.WorkbookError(fmt.Sprintf("failed to save %s", path), err)
	}
	w.logger.Info("Results for run %s written to %s", run.ID, path)
	return nil
}

func fitRows(run *assay.AnalysisRun) [][]interface{} {
	fit := run.Fit
	return [][]interface{}{
		{"Parameter", "Value"},
		{"Run ID", run.ID.String()},
		{"Created", run.CreatedAt.Format()},
		{"A", number(fit.Params.A)},
		{"B", number(fit.Params.B)},
		{"C", number(fit.Params.C)},
		{"D", number(fit.Params.D)},
		{"R²", number(fit.RSquared)},
		{"SSR", number(fit.SSR)},
		{"Points", fit.Points},
		{"Iterations", fit.Iterations},
		{"Termination", string(fit.Termination)},
		{"Degenerate", fit.Degenerate},
		{"Dilution", number(run.Dilution)},
	}
}

func concentrationRows(run *assay.AnalysisRun) [][]interface{} {
	rows := [][]interface{}{{"Condition", "Day", "Absorbance", "Concentration", "Status"}}
	for _, q := range run.Concentrations {
		var value interface{} = ""
		if q.Concentration.Ok() {
			value = number(q.Concentration.Value)
		}
		rows = append(rows, []interface{}{
			q.Sample.Condition, q.Sample.Day, number(q.Sample.Absorbance), value, q.Concentration.Status.String(),
		})
	}
	return rows
}

func statisticsRows(run *assay.AnalysisRun) [][]interface{} {
	rows := [][]interface{}{{
		"Day", "Method", "F", "p", "df Between", "df Within",
		"Group 1", "Group 2", "Mean Diff", "HSD", "Pair p", "Significance",
	}}
	for _, day := range run.Days {
		a, ok := run.Analyses[day]
		if !ok {
			continue
		}
		rows = append(rows, []interface{}{
			day, a.ANOVA.Method, number(a.ANOVA.FValue), number(a.ANOVA.PValue),
			number(a.ANOVA.DfBetween), number(a.ANOVA.DfWithin),
			"", "", "", "", "", significance.SignificanceTier(a.ANOVA.PValue),
		})
		for _, pair := range a.TukeyResults {
			rows = append(rows, []interface{}{
				day, "Tukey HSD", "", "", "", "",
				pair.Group1, pair.Group2, number(pair.MeanDiff), number(pair.HSD),
				number(pair.PValue), pair.Significance,
			})
		}
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.WorkbookError("invalid cell reference", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return errors.WorkbookError(fmt.Sprintf("failed to write row %d of %s", i+1, sheet), err)
		}
	}
	return nil
}

// number keeps finite floats numeric; spreadsheets have no NaN or Inf.
func number(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}
