package curve

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"assaykit/domain/assay"
	"assaykit/internal/linalg"
)

// Optimizer constants.
const (
	DefaultMaxIterations = 100000
	DefaultTolerance     = 1e-15

	initialLambda = 1e-3
	minLambda     = 1e-10
	maxLambda     = 1e15
	diagonalFloor = 1e-10
	// jacobianStep is the forward-difference step for every parameter.
	jacobianStep = 1e-6
	ssrEpsilon   = 1e-15
)

const numParams = 4

// optimization is the outcome of one Levenberg-Marquardt run.
type optimization struct {
	params      assay.FourPLParams
	ssr         float64
	iterations  int
	termination assay.Termination
}

// levenbergMarquardt minimizes the sum of squared residuals of the 4PL model
// over data, starting from initial. It never fails: the best parameters seen
// are returned when the damping or iteration ceiling is reached.
func levenbergMarquardt(data []assay.DataPoint, initial assay.FourPLParams, maxIterations int, tolerance float64) optimization {
	params := Clamp(initial)
	currentSSR := SumSquaredResiduals(data, params)
	lambda := initialLambda

	jtj, jtr := normalEquations(data, params)

	result := optimization{termination: assay.TerminationBudget}
	for iter := 0; iter < maxIterations; iter++ {
		result.iterations = iter + 1

		damped := mat.DenseCopyOf(jtj)
		for i := 0; i < numParams; i++ {
			d := damped.At(i, i) * (1 + lambda)
			if d < diagonalFloor {
				d = diagonalFloor
			}
			damped.Set(i, i, d)
		}

		delta, err := linalg.Solve(damped, jtr)
		if err != nil {
			lambda *= 10
			if lambda > maxLambda {
				result.termination = assay.TerminationDamping
				break
			}
			continue
		}

		step := params.Vector()
		for i := range step {
			step[i] += delta[i]
		}
		candidate := Clamp(assay.ParamsFromVector(step))
		candidateSSR := SumSquaredResiduals(data, candidate)

		if candidateSSR < currentSSR {
			change := math.Abs(currentSSR-candidateSSR) / (currentSSR + ssrEpsilon)
			params = candidate
			currentSSR = candidateSSR
			lambda = math.Max(lambda/10, minLambda)
			if change < tolerance {
				result.termination = assay.TerminationConverged
				break
			}
			jtj, jtr = normalEquations(data, params)
			continue
		}

		lambda *= 10
		if lambda > maxLambda {
			result.termination = assay.TerminationDamping
			break
		}
	}

	result.params = params
	result.ssr = currentSSR
	return result
}

// normalEquations builds JᵀJ and Jᵀr for the current parameters.
func normalEquations(data []assay.DataPoint, p assay.FourPLParams) (*mat.Dense, []float64) {
	jac, residuals := jacobian(data, p)
	jt := linalg.Transpose(jac)
	return linalg.Multiply(jt, jac), linalg.MulVec(jt, residuals)
}

// jacobian estimates ∂f/∂(A,B,C,D) at every point by forward differences and
// returns it together with the residual vector y − f(x).
func jacobian(data []assay.DataPoint, p assay.FourPLParams) (*mat.Dense, []float64) {
	jac := mat.NewDense(len(data), numParams, nil)
	residuals := make([]float64, len(data))
	base := p.Vector()

	shifted := make([]assay.FourPLParams, numParams)
	for j := 0; j < numParams; j++ {
		v := append([]float64(nil), base...)
		v[j] += jacobianStep
		shifted[j] = assay.ParamsFromVector(v)
	}

	for i, pt := range data {
		f0 := Evaluate(pt.X, p)
		residuals[i] = pt.Y - f0
		for j := 0; j < numParams; j++ {
			jac.Set(i, j, (Evaluate(pt.X, shifted[j])-f0)/jacobianStep)
		}
	}
	return jac, residuals
}
