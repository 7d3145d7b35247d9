package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"assaykit/adapters/curve"
	"assaykit/adapters/stats/significance"
	"assaykit/domain/assay"
	"assaykit/domain/core"
	"assaykit/internal"
	"assaykit/internal/errors"
	"assaykit/ports"
)

// DefaultCurvePoints is the resolution of the plotted curve
const DefaultCurvePoints = 100

// AnalysisService fits the standard curve of a plate, quantifies its samples
// and runs the per-day significance tests.
type AnalysisService struct {
	fitOptions  curve.Options
	curvePoints int
	engine      *significance.Engine
	logger      *internal.Logger
}

// AnalysisRequest defines the inputs of one plate analysis
type AnalysisRequest struct {
	Plate      *assay.Plate
	Conditions []string   // optional, defaults to order of first appearance
	Dilution   float64    // <= 0 means undiluted; must be finite
	RunID      core.RunID // optional, will be generated if empty
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(fitOptions curve.Options, curvePoints int, logger *internal.Logger) *AnalysisService {
	logger = internal.OrDefault(logger)
	if curvePoints <= 0 {
		curvePoints = DefaultCurvePoints
	}
	if fitOptions.Logger == nil {
		fitOptions.Logger = logger
	}
	return &AnalysisService{
		fitOptions:  fitOptions,
		curvePoints: curvePoints,
		engine:      significance.NewEngine(logger),
		logger:      logger.With("AnalysisService"),
	}
}

// Run executes one analysis: fit, quantify, group, test.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*assay.AnalysisRun, error) {
	startTime := time.Now()

	if req.Plate == nil {
		return nil, errors.InvalidInput("analysis request has no plate")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}
	dilution := req.Dilution
	if math.IsNaN(dilution) || math.IsInf(dilution, 0) {
		return nil, errors.WithCode(errors.CodeInvalidInput, core.NewValidationError("dilution", "must be finite"))
	}
	if dilution <= 0 {
		dilution = 1
	}
	conditions := req.Conditions
	if len(conditions) == 0 {
		conditions = req.Plate.Conditions()
	}

	fitter := curve.NewFitter(s.fitOptions)
	fit, err := fitter.Fit(req.Plate.Standards)
	if err != nil {
		err = fmt.Errorf("fit standard curve: %w", err)
		if core.IsInputError(err) {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
		return nil, errors.Wrap(err, "analysis failed")
	}
	s.logger.Info("Run %s: curve fitted (%s, R²=%.4f, %d iterations)", runID, fit.Params, fit.RSquared, fit.Iterations)

	points, err := s.curve(req.Plate.Standards, fit.Params)
	if err != nil {
		return nil, errors.Wrap(err, "generate curve points")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quantified := quantifySamples(req.Plate.Samples, fit.Params, dilution)
	grouped := GroupConcentrations(quantified)

	analyses := s.engine.AnalyzeAllDays(grouped, conditions)
	days := make([]string, 0, len(analyses))
	for _, day := range significance.SortedDays(grouped, conditions) {
		if _, ok := analyses[day]; ok {
			days = append(days, day)
		}
	}

	run := &assay.AnalysisRun{
		ID:             runID,
		CreatedAt:      core.Now(),
		Fit:            fit,
		Curve:          points,
		Dilution:       dilution,
		Conditions:     conditions,
		Days:           days,
		Concentrations: quantified,
		Cells:          summarizeCells(grouped, conditions),
		Analyses:       analyses,
	}

	s.logger.Info("Run %s completed in %dms: %d samples, %d days analyzed",
		runID, time.Since(startTime).Milliseconds(), len(quantified), len(days))
	return run, nil
}

// RunPlate reads the plate from src and runs the analysis. A plate already
// set on req is replaced.
func (s *AnalysisService) RunPlate(ctx context.Context, src ports.PlateReader, req AnalysisRequest) (*assay.AnalysisRun, error) {
	plate, err := src.ReadPlate()
	if err != nil {
		return nil, errors.Wrap(err, "read plate")
	}
	req.Plate = plate
	return s.Run(ctx, req)
}

// curve spans the positive standard concentrations on a log scale
func (s *AnalysisService) curve(standards []assay.DataPoint, p assay.FourPLParams) ([]assay.DataPoint, error) {
	var xs []float64
	for _, pt := range standards {
		if pt.Valid() && pt.X > 0 {
			xs = append(xs, pt.X)
		}
	}
	if len(xs) == 0 {
		return nil, nil
	}
	minX, maxX := floats.Min(xs), floats.Max(xs)
	if minX == maxX {
		return curve.GenerateCurvePoints(minX, maxX, 1, p)
	}
	return curve.GenerateCurvePoints(minX, maxX, s.curvePoints, p)
}

func quantifySamples(samples []assay.Sample, p assay.FourPLParams, dilution float64) []assay.QuantifiedSample {
	absorbances := make([]float64, len(samples))
	for i, smp := range samples {
		absorbances[i] = smp.Absorbance
	}
	concentrations := curve.Quantify(absorbances, p, dilution)

	out := make([]assay.QuantifiedSample, len(samples))
	for i, smp := range samples {
		out[i] = assay.QuantifiedSample{Sample: smp, Concentration: concentrations[i]}
	}
	return out
}

// GroupConcentrations builds condition -> day groups from the concentrations
// that could be back-calculated. Out-of-range wells are left out.
func GroupConcentrations(samples []assay.QuantifiedSample) assay.GroupedData {
	grouped := make(assay.GroupedData)
	for _, q := range samples {
		if !q.Concentration.Ok() {
			continue
		}
		days, ok := grouped[q.Sample.Condition]
		if !ok {
			days = make(map[string]assay.Group)
			grouped[q.Sample.Condition] = days
		}
		g := days[q.Sample.Day]
		g.Name = q.Sample.Condition
		g.Values = append(g.Values, q.Concentration.Value)
		days[q.Sample.Day] = g
	}
	return grouped
}

func summarizeCells(grouped assay.GroupedData, conditions []string) []assay.CellSummary {
	var cells []assay.CellSummary
	for _, day := range significance.SortedDays(grouped, conditions) {
		for _, cond := range conditions {
			g, ok := grouped[cond][day]
			if !ok || g.N() == 0 {
				continue
			}
			cells = append(cells, assay.CellSummary{
				Condition: cond,
				Day:       day,
				Summary:   significance.Describe(g.Values),
			})
		}
	}
	return cells
}
