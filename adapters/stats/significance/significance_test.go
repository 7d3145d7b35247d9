package significance

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assaykit/domain/assay"
	"assaykit/internal"
)

func TestDescribe(t *testing.T) {
	s := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.N)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.13809, s.SD, 1e-5)
	assert.InDelta(t, 2.13809/2.828427, s.SEM, 1e-5)
	assert.Equal(t, 4.5, s.Median)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)

	single := Describe([]float64{3})
	assert.Equal(t, 1, single.N)
	assert.Equal(t, 0.0, single.SD)

	assert.Equal(t, assay.Summary{}, Describe(nil))
}

func TestOneWayANOVA_IdenticalGroups(t *testing.T) {
	res := OneWayANOVA([]assay.Group{
		{Name: "a", Values: []float64{1, 2, 3}},
		{Name: "b", Values: []float64{1, 2, 3}},
	})
	assert.Equal(t, 0.0, res.FValue)
	assert.Equal(t, 1.0, res.PValue)
	assert.False(t, res.Significant)
}

func TestOneWayANOVA_KnownValues(t *testing.T) {
	res := OneWayANOVA([]assay.Group{
		{Name: "a", Values: []float64{1, 2, 3}},
		{Name: "b", Values: []float64{4, 5, 6}},
		{Name: "c", Values: []float64{7, 8, 9}},
	})
	assert.InDelta(t, 54.0, res.SSBetween, 1e-12)
	assert.InDelta(t, 6.0, res.SSWithin, 1e-12)
	assert.Equal(t, 2.0, res.DfBetween)
	assert.Equal(t, 6.0, res.DfWithin)
	assert.InDelta(t, 27.0, res.MSBetween, 1e-12)
	assert.InDelta(t, 1.0, res.MSWithin, 1e-12)
	assert.InDelta(t, 27.0, res.FValue, 1e-12)
	// F(2, 6) survival has the closed form (1 + F/3)^-3.
	assert.InDelta(t, 0.001, res.PValue, 1e-4)
	assert.True(t, res.Significant)
	assert.Equal(t, MethodANOVA, res.Method)
}

func TestOneWayANOVA_Underpowered(t *testing.T) {
	single := OneWayANOVA([]assay.Group{{Name: "a", Values: []float64{1, 2}}})
	assert.Equal(t, 0.0, single.FValue)
	assert.Equal(t, 1.0, single.PValue)
	assert.False(t, single.Significant)

	// One value per group leaves no within-group degrees of freedom.
	noDf := OneWayANOVA([]assay.Group{
		{Name: "a", Values: []float64{1}},
		{Name: "b", Values: []float64{5}},
		{Name: "c", Values: nil},
	})
	assert.Equal(t, 0.0, noDf.FValue)
	assert.Equal(t, 1.0, noDf.PValue)
	assert.Equal(t, 0.0, noDf.DfWithin)
	assert.False(t, noDf.Significant)

	// Constant groups: zero within-group variance keeps F at zero.
	flat := OneWayANOVA([]assay.Group{
		{Name: "a", Values: []float64{2, 2}},
		{Name: "b", Values: []float64{3, 3}},
	})
	assert.Equal(t, 0.0, flat.FValue)
	assert.Equal(t, 1.0, flat.PValue)
}

func TestTTest_SeparatedGroups(t *testing.T) {
	res := TTest([]float64{1, 2, 3, 4, 5}, []float64{10, 11, 12, 13, 14}, assay.TTestOptions{})
	assert.InDelta(t, 9.0, res.TValue, 1e-12)
	assert.Equal(t, 8.0, res.Df)
	assert.InDelta(t, -9.0, res.MeanDiff, 1e-12)
	assert.Less(t, res.PValue, 0.001)
	assert.True(t, res.Significant)
	assert.Contains(t, []string{"***", "****"}, res.Significance)
}

func TestTTest_PooledErrorTerm(t *testing.T) {
	res := TTest([]float64{1, 2, 3, 4, 5}, []float64{10, 11, 12, 13, 14}, assay.TTestOptions{PooledVariance: 2.5, PooledDf: 20})
	assert.InDelta(t, 9.0, res.TValue, 1e-12)
	assert.Equal(t, 20.0, res.Df)
	assert.InDelta(t, TTestPValue(9, 20), res.PValue, 1e-15)
}

func TestTTest_Neutral(t *testing.T) {
	for name, pair := range map[string][2][]float64{
		"too small":     {{1}, {2, 3}},
		"empty":         {nil, {2, 3}},
		"zero variance": {{4, 4}, {4, 4}},
	} {
		res := TTest(pair[0], pair[1], assay.TTestOptions{})
		assert.Equal(t, 0.0, res.TValue, name)
		assert.Equal(t, 1.0, res.PValue, name)
		assert.False(t, res.Significant, name)
		assert.Equal(t, SignificanceNS, res.Significance, name)
	}
}

func TestCriticalQ(t *testing.T) {
	assert.Equal(t, 3.64, CriticalQ(2, 5))
	assert.Equal(t, 3.88, CriticalQ(3, 6))
	assert.Equal(t, 3.68, CriticalQ(4, 120))
	assert.Equal(t, 3.86, CriticalQ(5, 121))
	assert.Equal(t, 4.47, CriticalQ(14, 1000), "k clamps to 10")
	assert.Equal(t, 3.64, CriticalQ(1, 0), "k clamps to 2")
}

func TestSignificanceTier(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.00001, "****"},
		{0.0001, "***"},
		{0.0009, "***"},
		{0.005, "**"},
		{0.03, "*"},
		{0.05, "ns"},
		{1, "ns"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignificanceTier(tt.p), "p=%v", tt.p)
	}
}

func TestTukeyHSD_TwoIdenticalOneApart(t *testing.T) {
	groups := []assay.Group{
		{Name: "a", Values: []float64{1, 2, 3}},
		{Name: "b", Values: []float64{1, 2, 3}},
		{Name: "c", Values: []float64{10, 11, 12}},
	}
	anova := OneWayANOVA(groups)
	require.True(t, anova.Significant)

	pairs := TukeyHSD(groups, anova.MSWithin, anova.DfWithin)
	require.Len(t, pairs, 3)

	byPair := make(map[string]assay.TukeyPairResult)
	for _, p := range pairs {
		byPair[p.Group1+"-"+p.Group2] = p
	}

	ab := byPair["a-b"]
	assert.False(t, ab.Significant)
	assert.Equal(t, SignificanceNS, ab.Significance)
	assert.Equal(t, 1.0, ab.PValue)

	for _, key := range []string{"a-c", "b-c"} {
		p := byPair[key]
		assert.True(t, p.Significant, key)
		assert.InDelta(t, 9.0, p.MeanDiff, 1e-12, key)
		assert.InDelta(t, 3.88*0.5773502692, p.HSD, 1e-9, key)
		assert.Equal(t, 0.0001, p.PValue, "p-values are floored")
		assert.Equal(t, "***", p.Significance, key)
	}
}

func TestTukeyHSD_Empty(t *testing.T) {
	groups := []assay.Group{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{3, 4}},
	}
	assert.Empty(t, TukeyHSD(groups, 0, 2))
	assert.Empty(t, TukeyHSD(groups[:1], 1, 2))
}

func TestGlobalPooledVariance(t *testing.T) {
	data := assay.GroupedData{
		"ctrl":  {"1": {Values: []float64{1, 2, 3}}, "2": {Values: []float64{4}}},
		"drug":  {"1": {Values: []float64{2, 4}}},
		"other": {"1": {Values: []float64{100, 200}}},
	}
	global := GlobalPooledVariance(data, []string{"ctrl", "drug"})
	// ss = 2 + 2, df = 2 + 1; "other" is not a listed condition.
	assert.InDelta(t, 4.0/3.0, global.PooledVariance, 1e-12)
	assert.Equal(t, 3.0, global.PooledDf)
	assert.True(t, global.Valid())

	empty := GlobalPooledVariance(assay.GroupedData{"ctrl": {"1": {Values: []float64{1}}}}, []string{"ctrl"})
	assert.False(t, empty.Valid())
}

func TestSortedDays(t *testing.T) {
	numeric := assay.GroupedData{
		"a": {"10": {}, "2": {}},
		"b": {"1": {}, "2": {}},
	}
	assert.Equal(t, []string{"1", "2", "10"}, SortedDays(numeric, []string{"a", "b"}))

	labelled := assay.GroupedData{"a": {"Day 2": {}, "Day 1": {}, "Baseline": {}}}
	assert.Equal(t, []string{"Baseline", "Day 1", "Day 2"}, SortedDays(labelled, []string{"a"}))
}

func newTestEngine() *Engine {
	return NewEngine(internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelDebug))
}

func studyData() assay.GroupedData {
	return assay.GroupedData{
		"ctrl": {
			"1": {Values: []float64{1, 2, 3}},
			"2": {Values: []float64{5, 6, 7}},
			"7": {Values: []float64{1}},
			"9": {Values: []float64{4, 5}},
		},
		"drugA": {
			"1": {Values: []float64{1, 2, 3}},
			"2": {Values: []float64{20, 21, 22}},
			"7": {Values: []float64{2, 3}},
		},
		"drugB": {
			"2": {Values: []float64{5, 6, 8}},
		},
	}
}

func TestAnalyzeAllDays(t *testing.T) {
	conditions := []string{"ctrl", "drugA", "drugB"}
	results := newTestEngine().AnalyzeAllDays(studyData(), conditions)

	require.Len(t, results, 3)
	assert.NotContains(t, results, "9", "a single group has nothing to compare")

	day1 := results["1"]
	assert.Equal(t, MethodTTestPooled, day1.ANOVA.Method)
	assert.Equal(t, []string{"ctrl", "drugA"}, day1.Groups)
	assert.Equal(t, 0.0, day1.ANOVA.FValue)
	assert.Equal(t, 1.0, day1.ANOVA.PValue)
	assert.Empty(t, day1.SignificantPairs)
	require.Len(t, day1.TukeyResults, 1)

	day2 := results["2"]
	assert.Equal(t, MethodANOVA, day2.ANOVA.Method)
	assert.True(t, day2.ANOVA.Significant)
	require.Len(t, day2.TukeyResults, 3)
	require.Len(t, day2.SignificantPairs, 2)
	for _, pair := range day2.SignificantPairs {
		assert.True(t, pair.Group1 == "drugA" || pair.Group2 == "drugA", "%s vs %s", pair.Group1, pair.Group2)
	}

	day7 := results["7"]
	assert.Equal(t, 1.0, day7.ANOVA.PValue, "one value in ctrl leaves the t-test neutral")
	assert.False(t, day7.ANOVA.Significant)
}

func TestAnalyzeDay_TwoGroupsWrapTTest(t *testing.T) {
	data := assay.GroupedData{
		"ctrl": {"1": {Values: []float64{1, 2, 3, 4, 5}}},
		"drug": {"1": {Values: []float64{10, 11, 12, 13, 14}}},
	}
	res := newTestEngine().AnalyzeDay(data, []string{"ctrl", "drug"}, "1", assay.GlobalStats{})
	require.NotNil(t, res)

	assert.Equal(t, MethodTTest, res.ANOVA.Method)
	assert.InDelta(t, 81.0, res.ANOVA.FValue, 1e-9)
	assert.Equal(t, 1.0, res.ANOVA.DfBetween)
	assert.Equal(t, 8.0, res.ANOVA.DfWithin)
	assert.InDelta(t, 2.5, res.ANOVA.MSWithin, 1e-12)
	assert.True(t, res.ANOVA.Significant)

	require.Len(t, res.SignificantPairs, 1)
	pair := res.SignificantPairs[0]
	assert.Equal(t, "ctrl", pair.Group1)
	assert.Equal(t, "drug", pair.Group2)
	assert.InDelta(t, 9.0, pair.MeanDiff, 1e-12)
}

func TestAnalyzeDay_NonSignificantANOVASkipsTukey(t *testing.T) {
	data := assay.GroupedData{
		"a": {"1": {Values: []float64{1, 2, 3}}},
		"b": {"1": {Values: []float64{1.5, 2.5, 3.5}}},
		"c": {"1": {Values: []float64{1, 2.2, 3.1}}},
	}
	res := newTestEngine().AnalyzeDay(data, []string{"a", "b", "c"}, "1", assay.GlobalStats{})
	require.NotNil(t, res)
	assert.False(t, res.ANOVA.Significant)
	assert.Empty(t, res.TukeyResults)
	assert.Empty(t, res.SignificantPairs)

	assert.Nil(t, newTestEngine().AnalyzeDay(data, []string{"a"}, "1", assay.GlobalStats{}))
	assert.Nil(t, newTestEngine().AnalyzeDay(data, []string{"a", "b"}, "missing", assay.GlobalStats{}))
}
