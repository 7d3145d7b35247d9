package curve

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"assaykit/domain/assay"
	"assaykit/domain/core"
	"assaykit/internal"
)

// MinPoints is the smallest number of valid standards a fit accepts.
const MinPoints = 4

// degenerateEpsilon bounds sums of squares treated as zero when computing R².
const degenerateEpsilon = 1e-20

// InsufficientDataError is returned by Fit when fewer than Required valid
// standards remain after filtering.
type InsufficientDataError struct {
	Valid    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for 4PL fit: %d valid points, need at least %d", e.Valid, e.Required)
}

func (e *InsufficientDataError) Unwrap() error {
	return core.ErrInsufficientData
}

// Options tunes the optimizer. Zero values select the defaults.
type Options struct {
	MaxIterations int
	Tolerance     float64
	Logger        *internal.Logger
}

// DefaultOptions returns the standard optimizer settings.
func DefaultOptions() Options {
	return Options{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// Fitter fits a 4PL curve and keeps the last successful fit for later
// evaluation and inversion. A Fitter is not safe for concurrent use; use one
// instance per independent fit or pass parameters explicitly to Evaluate,
// Inverse and GenerateCurvePoints.
type Fitter struct {
	opts   Options
	logger *internal.Logger
	result *assay.FitResult
}

// NewFitter creates a fitter with the given options.
func NewFitter(opts Options) *Fitter {
	opts = opts.withDefaults()
	return &Fitter{
		opts:   opts,
		logger: internal.OrDefault(opts.Logger).With("curve"),
	}
}

// Fit fits the 4PL model to the standards. Points with a non-finite value or
// a negative concentration are dropped first. On success the result replaces
// the fitter's stored parameters.
func (f *Fitter) Fit(points []assay.DataPoint) (assay.FitResult, error) {
	data := make([]assay.DataPoint, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			data = append(data, p)
		}
	}
	if dropped := len(points) - len(data); dropped > 0 {
		f.logger.Warn("dropped %d invalid standard points", dropped)
	}
	if len(data) < MinPoints {
		return assay.FitResult{}, &InsufficientDataError{Valid: len(data), Required: MinPoints}
	}

	initial := InitialParams(data)
	f.logger.Trace("initial estimate %s", initial)

	opt := levenbergMarquardt(data, initial, f.opts.MaxIterations, f.opts.Tolerance)
	f.logger.Debug("optimizer stopped after %d iterations (%s), SSR=%.6g", opt.iterations, opt.termination, opt.ssr)

	rSquared, degenerate := RSquared(data, opt.params)
	result := assay.FitResult{
		Params:      opt.params,
		RSquared:    rSquared,
		Degenerate:  degenerate,
		SSR:         opt.ssr,
		Points:      len(data),
		Iterations:  opt.iterations,
		Termination: opt.termination,
	}
	f.result = &result
	return result, nil
}

// InitialParams estimates starting values: A₀ = min(y), D₀ = max(y), B₀ = 1
// and C₀ = median(x).
func InitialParams(data []assay.DataPoint) assay.FourPLParams {
	xs := make([]float64, len(data))
	ys := make([]float64, len(data))
	for i, p := range data {
		xs[i] = p.X
		ys[i] = p.Y
	}
	median, err := stats.Median(xs)
	if err != nil {
		median = MinC
	}
	return assay.FourPLParams{
		A: floats.Min(ys),
		B: 1.0,
		C: median,
		D: floats.Max(ys),
	}
}

// RSquared returns 1 − SSR/SST. When SST is zero the result is degenerate:
// R² is 1 for an exact fit and NaN otherwise.
func RSquared(data []assay.DataPoint, p assay.FourPLParams) (float64, bool) {
	if len(data) == 0 {
		return math.NaN(), true
	}
	mean := 0.0
	for _, pt := range data {
		mean += pt.Y
	}
	mean /= float64(len(data))

	sst := 0.0
	for _, pt := range data {
		d := pt.Y - mean
		sst += d * d
	}
	ssr := SumSquaredResiduals(data, p)

	if sst <= degenerateEpsilon {
		if ssr <= degenerateEpsilon {
			return 1, true
		}
		return math.NaN(), true
	}
	return 1 - ssr/sst, false
}

// Result returns the last successful fit.
func (f *Fitter) Result() (assay.FitResult, bool) {
	if f.result == nil {
		return assay.FitResult{}, false
	}
	return *f.result, true
}

// Params returns the stored parameters of the last successful fit.
func (f *Fitter) Params() (assay.FourPLParams, bool) {
	if f.result == nil {
		return assay.FourPLParams{}, false
	}
	return f.result.Params, true
}

// Evaluate evaluates the stored curve at x.
func (f *Fitter) Evaluate(x float64) (float64, error) {
	p, ok := f.Params()
	if !ok {
		return 0, core.ErrNotFitted
	}
	return Evaluate(x, p), nil
}

// CalculateConcentration inverts the stored curve at absorbance y.
func (f *Fitter) CalculateConcentration(y float64) (assay.Concentration, error) {
	p, ok := f.Params()
	if !ok {
		return assay.Concentration{}, core.ErrNotFitted
	}
	return Inverse(y, p), nil
}

// CurvePoints generates plotting points for the stored curve.
func (f *Fitter) CurvePoints(minX, maxX float64, n int) ([]assay.DataPoint, error) {
	p, ok := f.Params()
	if !ok {
		return nil, core.ErrNotFitted
	}
	return GenerateCurvePoints(minX, maxX, n, p)
}
