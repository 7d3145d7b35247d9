package significance

import (
	"math"
	"sort"
	"strconv"

	"assaykit/domain/assay"
	"assaykit/internal"
)

// GlobalPooledVariance pools sums of squares and degrees of freedom over
// every (condition, day) cell with at least two values. The result is an
// error term shared by all pairwise day-level t-tests.
func GlobalPooledVariance(data assay.GroupedData, conditions []string) assay.GlobalStats {
	ss, df := 0.0, 0.0
	for _, condition := range conditions {
		for _, group := range data[condition] {
			n := len(group.Values)
			if n < 2 {
				continue
			}
			ss += sumSquares(group.Values)
			df += float64(n - 1)
		}
	}
	if df == 0 {
		return assay.GlobalStats{}
	}
	return assay.GlobalStats{PooledVariance: ss / df, PooledDf: df}
}

// SortedDays lists every day present for the given conditions. Days sort
// numerically when every label parses as a number, lexically otherwise.
func SortedDays(data assay.GroupedData, conditions []string) []string {
	seen := make(map[string]bool)
	var days []string
	for _, condition := range conditions {
		for day := range data[condition] {
			if !seen[day] {
				seen[day] = true
				days = append(days, day)
			}
		}
	}

	numeric := make(map[string]float64, len(days))
	for _, day := range days {
		v, err := strconv.ParseFloat(day, 64)
		if err != nil {
			sort.Strings(days)
			return days
		}
		numeric[day] = v
	}
	sort.Slice(days, func(i, j int) bool {
		return numeric[days[i]] < numeric[days[j]]
	})
	return days
}

// Engine dispatches the per-day tests. It holds no analysis state.
type Engine struct {
	logger *internal.Logger
}

// NewEngine creates an engine; a nil logger selects the default logger.
func NewEngine(logger *internal.Logger) *Engine {
	return &Engine{logger: internal.OrDefault(logger).With("stats")}
}

// AnalyzeDay tests the groups present on one day, in conditions order.
// Two groups run a t-test, wrapped in an ANOVA-shaped result with F = t².
// Three or more run a one-way ANOVA followed by Tukey HSD when the ANOVA is
// significant. Fewer than two groups return nil.
func (e *Engine) AnalyzeDay(data assay.GroupedData, conditions []string, day string, global assay.GlobalStats) *assay.DayAnalysis {
	var groups []assay.Group
	for _, condition := range conditions {
		group, ok := data[condition][day]
		if !ok || len(group.Values) == 0 {
			continue
		}
		group.Name = condition
		groups = append(groups, group)
	}

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}

	switch {
	case len(groups) < 2:
		e.logger.Debug("day %s: %d group(s), nothing to compare", day, len(groups))
		return nil
	case len(groups) == 2:
		return e.twoGroupDay(day, names, groups[0], groups[1], global)
	}

	anova := OneWayANOVA(groups)
	e.logger.Debug("day %s: %s over %d groups, F=%.4g p=%.4g", day, anova.Method, len(groups), anova.FValue, anova.PValue)

	analysis := &assay.DayAnalysis{
		Day:              day,
		Groups:           names,
		ANOVA:            anova,
		TukeyResults:     []assay.TukeyPairResult{},
		SignificantPairs: []assay.TukeyPairResult{},
	}
	if !anova.Significant {
		return analysis
	}

	tukey := TukeyHSD(groups, anova.MSWithin, anova.DfWithin)
	for i := range tukey {
		tukey[i].Significance = SignificanceTier(tukey[i].PValue)
		if tukey[i].PValue < Alpha {
			analysis.SignificantPairs = append(analysis.SignificantPairs, tukey[i])
		}
	}
	analysis.TukeyResults = tukey
	return analysis
}

func (e *Engine) twoGroupDay(day string, names []string, g1, g2 assay.Group, global assay.GlobalStats) *assay.DayAnalysis {
	method := MethodTTest
	var opts assay.TTestOptions
	if global.Valid() {
		method = MethodTTestPooled
		opts = assay.TTestOptions{PooledVariance: global.PooledVariance, PooledDf: global.PooledDf}
	}

	t := TTest(g1.Values, g2.Values, opts)
	e.logger.Debug("day %s: %s, t=%.4g df=%.4g p=%.4g", day, method, t.TValue, t.Df, t.PValue)

	msWithin := opts.PooledVariance
	if msWithin == 0 && t.Df > 0 {
		msWithin = (sumSquares(g1.Values) + sumSquares(g2.Values)) / t.Df
	}

	pair := assay.TukeyPairResult{
		Group1:       g1.Name,
		Group2:       g2.Name,
		Mean1:        mean(g1.Values),
		Mean2:        mean(g2.Values),
		MeanDiff:     math.Abs(t.MeanDiff),
		PValue:       t.PValue,
		Significant:  t.Significant,
		Significance: t.Significance,
	}

	analysis := &assay.DayAnalysis{
		Day:    day,
		Groups: names,
		ANOVA: assay.ANOVAResult{
			FValue:      t.TValue * t.TValue,
			PValue:      t.PValue,
			DfBetween:   1,
			DfWithin:    t.Df,
			MSWithin:    msWithin,
			Significant: t.Significant,
			Method:      method,
		},
		TukeyResults:     []assay.TukeyPairResult{pair},
		SignificantPairs: []assay.TukeyPairResult{},
	}
	if pair.PValue < Alpha {
		analysis.SignificantPairs = append(analysis.SignificantPairs, pair)
	}
	return analysis
}

// AnalyzeAllDays runs AnalyzeDay for every day, sharing one pooled error
// term across the two-group days. Days with fewer than two groups are left
// out of the result.
func (e *Engine) AnalyzeAllDays(data assay.GroupedData, conditions []string) map[string]assay.DayAnalysis {
	global := GlobalPooledVariance(data, conditions)
	e.logger.Debug("pooled error term: variance=%.4g df=%.0f", global.PooledVariance, global.PooledDf)

	results := make(map[string]assay.DayAnalysis)
	for _, day := range SortedDays(data, conditions) {
		if analysis := e.AnalyzeDay(data, conditions, day, global); analysis != nil {
			results[day] = *analysis
		}
	}
	return results
}
