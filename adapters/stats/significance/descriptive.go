// Package significance runs the group comparisons used on derived
// concentrations: one-way ANOVA, Tukey HSD, Student's t-test and the
// special functions behind their p-values. Every routine is pure.
package significance

import (
	"math"

	"github.com/montanaflynn/stats"

	"assaykit/domain/assay"
)

// Describe summarizes one sample. Empty input yields a zero Summary; a
// single value has zero SD and SEM.
func Describe(values []float64) assay.Summary {
	if len(values) == 0 {
		return assay.Summary{}
	}
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)

	summary := assay.Summary{
		N:      len(values),
		Mean:   mean,
		Median: median,
		Min:    min,
		Max:    max,
	}
	if len(values) > 1 {
		sd, _ := stats.StandardDeviationSample(values)
		summary.SD = sd
		summary.SEM = sd / math.Sqrt(float64(len(values)))
	}
	return summary
}

func mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// sampleVariance is the n−1 variance; zero below two values.
func sampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	v, err := stats.SampleVariance(values)
	if err != nil {
		return 0
	}
	return v
}

// sumSquares returns Σ(x − mean)².
func sumSquares(values []float64) float64 {
	m := mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return ss
}

// nonEmpty drops groups without values.
func nonEmpty(groups []assay.Group) []assay.Group {
	out := make([]assay.Group, 0, len(groups))
	for _, g := range groups {
		if len(g.Values) > 0 {
			out = append(out, g)
		}
	}
	return out
}
