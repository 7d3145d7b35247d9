// Package linalg holds the small dense helpers used by the curve optimizer.
package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"assaykit/domain/core"
)

// PivotEpsilon is the smallest pivot magnitude Solve accepts.
const PivotEpsilon = 1e-12

// Transpose returns a new matrix holding mᵀ.
func Transpose(m mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(m.T())
}

// Multiply returns a·b.
func Multiply(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// MulVec returns a·v.
func MulVec(a mat.Matrix, v []float64) []float64 {
	r, _ := a.Dims()
	out := mat.NewVecDense(r, nil)
	out.MulVec(a, mat.NewVecDense(len(v), v))
	return out.RawVector().Data
}

// Solve solves a·x = b by Gaussian elimination with partial pivoting.
// a must be square; it is not modified. A pivot smaller than PivotEpsilon
// yields core.ErrSingularMatrix and an overflowing solution core.ErrNonFinite.
func Solve(a mat.Matrix, b []float64) ([]float64, error) {
	n, c := a.Dims()
	if n != c {
		return nil, fmt.Errorf("%w: solve needs a square matrix, got %dx%d", core.ErrInvalidInput, n, c)
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: right-hand side has %d entries, want %d", core.ErrInvalidInput, len(b), n)
	}

	// Augmented matrix [a | b]
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, n+1)
		for j := 0; j < n; j++ {
			aug[i][j] = a.At(i, j)
		}
		aug[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		maxAbs := math.Abs(aug[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(aug[r][col]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if maxAbs < PivotEpsilon || math.IsNaN(maxAbs) {
			return nil, fmt.Errorf("%w: pivot %.3g in column %d", core.ErrSingularMatrix, maxAbs, col)
		}
		if pivot != col {
			aug[col], aug[pivot] = aug[pivot], aug[col]
		}
		for r := col + 1; r < n; r++ {
			factor := aug[r][col] / aug[col][col]
			for k := col; k <= n; k++ {
				aug[r][k] -= factor * aug[col][k]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := aug[i][n]
		for j := i + 1; j < n; j++ {
			sum -= aug[i][j] * x[j]
		}
		x[i] = sum / aug[i][i]
	}
	if !AllFinite(x) {
		return nil, fmt.Errorf("%w: solution of %dx%d system", core.ErrNonFinite, n, n)
	}
	return x, nil
}

// AllFinite reports whether every entry of v is a finite number.
func AllFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
