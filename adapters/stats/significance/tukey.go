package significance

import (
	"math"

	"assaykit/domain/assay"
)

// TukeyAlpha is the only level the critical-value table covers.
const TukeyAlpha = 0.05

// tukeyMinP floors pairwise p-values from the normal approximation.
const tukeyMinP = 0.0001

// Significance labels.
const (
	SignificanceNS = "ns"
)

// Studentized range critical values q(0.05; k, df), rows by df bucket and
// columns by k = 2..10.
var (
	tukeyDfBuckets = []float64{5, 10, 15, 20, 30, 60, 120, math.Inf(1)}
	tukeyQTable    = [][]float64{
		{3.64, 4.60, 5.22, 5.67, 6.03, 6.33, 6.58, 6.80, 6.99},
		{3.15, 3.88, 4.33, 4.65, 4.91, 5.12, 5.30, 5.46, 5.60},
		{3.01, 3.67, 4.08, 4.37, 4.59, 4.78, 4.94, 5.08, 5.20},
		{2.95, 3.58, 3.96, 4.23, 4.45, 4.62, 4.77, 4.90, 5.01},
		{2.89, 3.49, 3.85, 4.10, 4.30, 4.46, 4.60, 4.72, 4.82},
		{2.83, 3.40, 3.74, 3.98, 4.16, 4.31, 4.44, 4.55, 4.65},
		{2.80, 3.36, 3.68, 3.92, 4.10, 4.24, 4.36, 4.47, 4.56},
		{2.77, 3.31, 3.63, 3.86, 4.03, 4.17, 4.29, 4.39, 4.47},
	}
)

// CriticalQ looks up q(0.05; k, df). k is clamped to [2, 10]; df selects the
// smallest tabulated bucket at or above it, without interpolation.
func CriticalQ(k int, df float64) float64 {
	if k < 2 {
		k = 2
	}
	if k > 10 {
		k = 10
	}
	row := len(tukeyDfBuckets) - 1
	for i, bucket := range tukeyDfBuckets {
		if df <= bucket {
			row = i
			break
		}
	}
	return tukeyQTable[row][k-2]
}

// SignificanceTier maps a p-value to "****", "***", "**", "*" or "ns".
func SignificanceTier(p float64) string {
	switch {
	case p < 0.0001:
		return "****"
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	default:
		return SignificanceNS
	}
}

// TukeyHSD compares every unordered pair of groups at the TukeyAlpha level,
// the only level the critical-value table covers. It needs at least two
// non-empty groups and a positive msWithin, otherwise the result is empty.
func TukeyHSD(groups []assay.Group, msWithin, dfWithin float64) []assay.TukeyPairResult {
	groups = nonEmpty(groups)
	k := len(groups)
	if k < 2 || !(msWithin > 0) {
		return []assay.TukeyPairResult{}
	}

	q := CriticalQ(k, dfWithin)
	comparisons := float64(k*(k-1)) / 2

	means := make([]float64, k)
	for i, g := range groups {
		means[i] = mean(g.Values)
	}

	results := make([]assay.TukeyPairResult, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			n1 := float64(len(groups[i].Values))
			n2 := float64(len(groups[j].Values))
			harmonic := 2 * n1 * n2 / (n1 + n2)
			se := math.Sqrt(msWithin / harmonic)

			diff := math.Abs(means[i] - means[j])
			qStat := diff / se
			p := comparisons * 2 * (1 - NormalCDF(qStat/math.Sqrt2))
			p = math.Max(math.Min(p, 1), tukeyMinP)

			hsd := q * se
			results = append(results, assay.TukeyPairResult{
				Group1:       groups[i].Name,
				Group2:       groups[j].Name,
				Mean1:        means[i],
				Mean2:        means[j],
				MeanDiff:     diff,
				HSD:          hsd,
				QValue:       qStat,
				PValue:       p,
				Significant:  diff > hsd,
				Significance: SignificanceTier(p),
			})
		}
	}
	return results
}
