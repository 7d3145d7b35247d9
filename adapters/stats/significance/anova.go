package significance

import (
	"assaykit/domain/assay"
)

// Alpha is the significance threshold for ANOVA and t-test verdicts.
const Alpha = 0.05

const MethodANOVA = "One-way ANOVA"

// OneWayANOVA compares the means of two or more groups. Fewer than two
// non-empty groups, or no within-group degrees of freedom, yield F = 0 and
// p = 1.
func OneWayANOVA(groups []assay.Group) assay.ANOVAResult {
	groups = nonEmpty(groups)
	result := assay.ANOVAResult{PValue: 1, Method: MethodANOVA}
	if len(groups) < 2 {
		return result
	}

	total := 0
	grandSum := 0.0
	for _, g := range groups {
		total += len(g.Values)
		for _, v := range g.Values {
			grandSum += v
		}
	}
	grandMean := grandSum / float64(total)

	ssBetween, ssWithin := 0.0, 0.0
	for _, g := range groups {
		m := mean(g.Values)
		d := m - grandMean
		ssBetween += float64(len(g.Values)) * d * d
		ssWithin += sumSquares(g.Values)
	}

	k := len(groups)
	result.DfBetween = float64(k - 1)
	result.DfWithin = float64(total - k)
	result.SSBetween = ssBetween
	result.SSWithin = ssWithin
	if result.DfWithin <= 0 {
		return result
	}

	result.MSBetween = ssBetween / result.DfBetween
	result.MSWithin = ssWithin / result.DfWithin
	if result.MSWithin > 0 {
		result.FValue = result.MSBetween / result.MSWithin
	}
	result.PValue = FTestPValue(result.FValue, result.DfBetween, result.DfWithin)
	result.Significant = result.PValue < Alpha
	return result
}
