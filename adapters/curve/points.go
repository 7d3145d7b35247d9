package curve

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"assaykit/domain/assay"
	"assaykit/domain/core"
)

// GenerateCurvePoints returns n points with x log-spaced between minX and
// maxX and y = f(x). minX must be positive and, for n >= 2, below maxX.
func GenerateCurvePoints(minX, maxX float64, n int, p assay.FourPLParams) ([]assay.DataPoint, error) {
	switch {
	case n < 0:
		return nil, core.NewRangeError("n", "must not be negative")
	case n == 0:
		return []assay.DataPoint{}, nil
	case !(minX > 0) || math.IsInf(minX, 0):
		return nil, core.NewRangeError("minX", "must be positive and finite for log spacing")
	case n == 1:
		return []assay.DataPoint{{X: minX, Y: Evaluate(minX, p)}}, nil
	case !(maxX > minX) || math.IsInf(maxX, 0):
		return nil, core.NewRangeError("maxX", "must be finite and greater than minX")
	}

	xs := make([]float64, n)
	floats.LogSpan(xs, minX, maxX)

	points := make([]assay.DataPoint, n)
	for i, x := range xs {
		points[i] = assay.DataPoint{X: x, Y: Evaluate(x, p)}
	}
	return points, nil
}

// Quantify converts sample absorbances into concentrations and multiplies
// every valid value by the dilution factor. A non-positive dilution is
// treated as 1.
func Quantify(absorbances []float64, p assay.FourPLParams, dilution float64) []assay.Concentration {
	if dilution <= 0 {
		dilution = 1
	}
	out := make([]assay.Concentration, len(absorbances))
	for i, y := range absorbances {
		c := Inverse(y, p)
		if c.Ok() {
			c.Value *= dilution
		}
		out[i] = c
	}
	return out
}
