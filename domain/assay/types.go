package assay

import (
	"fmt"
	"math"

	"assaykit/domain/core"
)

// ============================================================================
// CURVE FITTING
// ============================================================================

// DataPoint is a single (concentration, absorbance) observation.
type DataPoint struct {
	X float64 `json:"x"` // concentration
	Y float64 `json:"y"` // absorbance
}

// Valid reports whether the point can take part in a fit: finite values and
// a non-negative concentration.
func (p DataPoint) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		p.X >= 0
}

// FourPLParams holds the four-parameter logistic coefficients.
// INVARIANTS while used by the optimizer or evaluator:
// - C > 0 (clamped to a tiny positive floor)
// - A, B, D >= 0
type FourPLParams struct {
	A float64 `json:"a"` // response at zero concentration
	B float64 `json:"b"` // Hill slope
	C float64 `json:"c"` // inflection concentration (EC50)
	D float64 `json:"d"` // response at infinite concentration
}

func (p FourPLParams) String() string {
	return fmt.Sprintf("A=%.6g B=%.6g C=%.6g D=%.6g", p.A, p.B, p.C, p.D)
}

// Vector returns the parameters in A, B, C, D order.
func (p FourPLParams) Vector() []float64 {
	return []float64{p.A, p.B, p.C, p.D}
}

// ParamsFromVector is the inverse of Vector.
func ParamsFromVector(v []float64) FourPLParams {
	return FourPLParams{A: v[0], B: v[1], C: v[2], D: v[3]}
}

// Termination explains why the optimizer stopped.
type Termination string

const (
	TerminationConverged Termination = "converged"
	TerminationDamping   Termination = "damping_ceiling"
	TerminationBudget    Termination = "iteration_budget"
)

// FitResult is the output of a 4PL fit.
// RSquared may be negative when the model does worse than the mean. When the
// absorbances have zero total variance, Degenerate is set and RSquared is 1
// for an exact fit and NaN otherwise.
type FitResult struct {
	Params      FourPLParams `json:"params"`
	RSquared    float64      `json:"r_squared"`
	Degenerate  bool         `json:"degenerate"`
	SSR         float64      `json:"ssr"`
	Points      int          `json:"points"`
	Iterations  int          `json:"iterations"`
	Termination Termination  `json:"termination"`
}

// InverseStatus tags the outcome of inverting the curve.
type InverseStatus int

const (
	InverseOK InverseStatus = iota
	// InverseOutOfRange means the absorbance lies outside the open interval
	// between the two asymptotes.
	InverseOutOfRange
	// InverseInvalid means the inversion would need a non-positive power base.
	InverseInvalid
)

func (s InverseStatus) String() string {
	switch s {
	case InverseOK:
		return "ok"
	case InverseOutOfRange:
		return "out_of_range"
	case InverseInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Concentration is the tagged result of converting an absorbance back into a
// concentration. Value is meaningful only when Status is InverseOK.
type Concentration struct {
	Absorbance float64       `json:"absorbance"`
	Value      float64       `json:"value"`
	Status     InverseStatus `json:"status"`
}

// Ok reports whether Value holds a real concentration.
func (c Concentration) Ok() bool {
	return c.Status == InverseOK
}

// Sample is one unknown well: an absorbance tagged with its experimental
// condition and day.
type Sample struct {
	Condition  string  `json:"condition"`
	Day        string  `json:"day"`
	Absorbance float64 `json:"absorbance"`
}

// ============================================================================
// GROUP STATISTICS
// ============================================================================

// Group is a named sample used for statistical testing.
type Group struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// N returns the sample size.
func (g Group) N() int {
	return len(g.Values)
}

// Summary holds descriptive statistics of one sample.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
	SEM    float64 `json:"sem"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ANOVAResult is the one-way ANOVA output. Two-group t-tests are wrapped into
// this shape with FValue = t² so consumers treat every day alike.
type ANOVAResult struct {
	FValue      float64 `json:"f_value"`
	PValue      float64 `json:"p_value"`
	DfBetween   float64 `json:"df_between"`
	DfWithin    float64 `json:"df_within"`
	MSBetween   float64 `json:"ms_between"`
	MSWithin    float64 `json:"ms_within"`
	SSBetween   float64 `json:"ss_between"`
	SSWithin    float64 `json:"ss_within"`
	Significant bool    `json:"significant"`
	Method      string  `json:"method"`
}

// TTestOptions supplies an external error term. When PooledVariance and
// PooledDf are both positive they replace the per-pair pooled variance.
type TTestOptions struct {
	PooledVariance float64
	PooledDf       float64
}

// TTestResult is the output of Student's t-test.
type TTestResult struct {
	TValue       float64 `json:"t_value"`
	PValue       float64 `json:"p_value"`
	Df           float64 `json:"df"`
	MeanDiff     float64 `json:"mean_diff"`
	Significant  bool    `json:"significant"`
	Significance string  `json:"significance"`
}

// TukeyPairResult is one pairwise comparison of Tukey's HSD.
// Significant compares MeanDiff with HSD; Significance tiers the p-value.
// The two signals are related but computed independently.
type TukeyPairResult struct {
	Group1       string  `json:"group1"`
	Group2       string  `json:"group2"`
	Mean1        float64 `json:"mean1"`
	Mean2        float64 `json:"mean2"`
	MeanDiff     float64 `json:"mean_diff"`
	HSD          float64 `json:"hsd"`
	QValue       float64 `json:"q_value"`
	PValue       float64 `json:"p_value"`
	Significant  bool    `json:"significant"`
	Significance string  `json:"significance"`
}

// GlobalStats is an error term pooled across every (condition, day) cell.
type GlobalStats struct {
	PooledVariance float64 `json:"pooled_variance"`
	PooledDf       float64 `json:"pooled_df"`
}

// Valid reports whether the pooled term can be used by a t-test.
func (g GlobalStats) Valid() bool {
	return g.PooledVariance > 0 && g.PooledDf > 0
}

// DayAnalysis collects the tests run for one day.
type DayAnalysis struct {
	Day              string            `json:"day"`
	Groups           []string          `json:"groups"`
	ANOVA            ANOVAResult       `json:"anova"`
	TukeyResults     []TukeyPairResult `json:"tukey_results"`
	SignificantPairs []TukeyPairResult `json:"significant_pairs"`
}

// GroupedData maps condition -> day -> group.
type GroupedData map[string]map[string]Group

// ============================================================================
// RUNS
// ============================================================================

// Plate is the input of one analysis: standards plus unknown samples.
type Plate struct {
	Standards []DataPoint `json:"standards"`
	Samples   []Sample    `json:"samples"`
}

// Conditions lists sample conditions in order of first appearance.
func (p Plate) Conditions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range p.Samples {
		if !seen[s.Condition] {
			seen[s.Condition] = true
			out = append(out, s.Condition)
		}
	}
	return out
}

// QuantifiedSample is a sample with its back-calculated concentration.
type QuantifiedSample struct {
	Sample        Sample        `json:"sample"`
	Concentration Concentration `json:"concentration"`
}

// CellSummary describes the concentrations of one (condition, day) cell.
type CellSummary struct {
	Condition string  `json:"condition"`
	Day       string  `json:"day"`
	Summary   Summary `json:"summary"`
}

// AnalysisRun is the complete output of one plate analysis.
type AnalysisRun struct {
	ID             core.RunID             `json:"id"`
	CreatedAt      core.Timestamp         `json:"created_at"`
	Fit            FitResult              `json:"fit"`
	Curve          []DataPoint            `json:"curve"`
	Dilution       float64                `json:"dilution"`
	Conditions     []string               `json:"conditions"`
	Days           []string               `json:"days"`
	Concentrations []QuantifiedSample     `json:"concentrations"`
	Cells          []CellSummary          `json:"cells"`
	Analyses       map[string]DayAnalysis `json:"analyses"`
}
