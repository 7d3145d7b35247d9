package significance

import (
	"math"

	"assaykit/domain/assay"
)

const (
	MethodTTest       = "Unpaired t-test"
	MethodTTestPooled = "Unpaired t-test (Pooled SD)"
)

// TTest runs Student's two-sample t-test. With a valid external error term
// in opts the standard error uses that pooled variance and df; otherwise the
// two groups' own variances are pooled with df = n1 + n2 − 2. Groups with
// fewer than two values, or a zero standard error, give the neutral result
// t = 0, p = 1.
func TTest(group1, group2 []float64, opts assay.TTestOptions) assay.TTestResult {
	neutral := assay.TTestResult{PValue: 1, Significance: SignificanceTier(1)}
	n1, n2 := float64(len(group1)), float64(len(group2))
	if n1 < 2 || n2 < 2 {
		return neutral
	}

	mean1, mean2 := mean(group1), mean(group2)
	neutral.MeanDiff = mean1 - mean2

	var se, df float64
	if opts.PooledVariance > 0 && opts.PooledDf > 0 {
		se = math.Sqrt(opts.PooledVariance * (1/n1 + 1/n2))
		df = opts.PooledDf
	} else {
		df = n1 + n2 - 2
		pooled := ((n1-1)*sampleVariance(group1) + (n2-1)*sampleVariance(group2)) / df
		se = math.Sqrt(pooled * (1/n1 + 1/n2))
	}
	if !(se > 0) || math.IsInf(se, 0) {
		neutral.Df = df
		return neutral
	}

	t := math.Abs(mean1-mean2) / se
	p := TTestPValue(t, df)
	return assay.TTestResult{
		TValue:       t,
		PValue:       p,
		Df:           df,
		MeanDiff:     mean1 - mean2,
		Significant:  p < Alpha,
		Significance: SignificanceTier(p),
	}
}
