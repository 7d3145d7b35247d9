// Package curve fits four-parameter logistic standard curves and converts
// absorbances back into concentrations.
//
// The model is
//
//	f(x; A,B,C,D) = D + (A-D) / (1 + (x/C)^B)
//
// with f(0) = A by convention.
package curve

import (
	"math"

	"assaykit/domain/assay"
)

// Box constraints applied after each optimizer step.
const (
	MinC = 1e-12
)

// Evaluate returns the 4PL response at concentration x. Non-positive
// concentrations evaluate to A, the response at zero concentration.
func Evaluate(x float64, p assay.FourPLParams) float64 {
	if x <= 0 {
		return p.A
	}
	c := p.C
	if c < MinC {
		c = MinC
	}
	return p.D + (p.A-p.D)/(1+math.Pow(x/c, p.B))
}

// Inverse converts an absorbance back into a concentration. Absorbances
// outside the open interval between the asymptotes are out of range; a
// non-positive slope, a non-positive power base or a non-finite result is
// invalid.
func Inverse(y float64, p assay.FourPLParams) assay.Concentration {
	out := assay.Concentration{Absorbance: y}

	minY := math.Min(p.A, p.D)
	maxY := math.Max(p.A, p.D)
	if !(y > minY && y < maxY) {
		out.Status = assay.InverseOutOfRange
		return out
	}

	// A zero slope makes the curve flat in x: no concentration maps back.
	if !(p.B > 0) {
		out.Status = assay.InverseInvalid
		return out
	}

	ratio := (p.A-p.D)/(y-p.D) - 1
	if !(ratio > 0) {
		out.Status = assay.InverseInvalid
		return out
	}

	value := p.C * math.Pow(ratio, 1/p.B)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		out.Status = assay.InverseInvalid
		return out
	}
	out.Value = value
	return out
}

// Clamp enforces A, B, D >= 0 and C >= MinC.
func Clamp(p assay.FourPLParams) assay.FourPLParams {
	return assay.FourPLParams{
		A: math.Max(p.A, 0),
		B: math.Max(p.B, 0),
		C: math.Max(p.C, MinC),
		D: math.Max(p.D, 0),
	}
}

// SumSquaredResiduals returns Σ(yᵢ − f(xᵢ))².
func SumSquaredResiduals(data []assay.DataPoint, p assay.FourPLParams) float64 {
	ssr := 0.0
	for _, pt := range data {
		r := pt.Y - Evaluate(pt.X, p)
		ssr += r * r
	}
	return ssr
}
