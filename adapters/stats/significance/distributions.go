package significance

import "math"

// Lanczos approximation, g = 7.
var lanczosCoefficients = [9]float64{
	0.99999999999980993,
	676.5203681218851,
	-1259.1392167224028,
	771.32342877765313,
	-176.61502916214059,
	12.507343278686905,
	-0.13857109526572012,
	9.9843695780195716e-6,
	1.5056327351493116e-7,
}

const lanczosG = 7

// LogGamma returns ln|Γ(x)| using the Lanczos approximation, with the
// reflection formula for x < 0.5.
func LogGamma(x float64) float64 {
	if x < 0.5 {
		return math.Log(math.Pi/math.Abs(math.Sin(math.Pi*x))) - LogGamma(1-x)
	}
	x--
	a := lanczosCoefficients[0]
	t := x + lanczosG + 0.5
	for i := 1; i < len(lanczosCoefficients); i++ {
		a += lanczosCoefficients[i] / (x + float64(i))
	}
	return 0.5*math.Log(2*math.Pi) + (x+0.5)*math.Log(t) - t + math.Log(a)
}

// Continued fraction settings for the incomplete beta function.
const (
	betaMaxIterations = 200
	betaEpsilon       = 1e-14
	betaTiny          = 1e-30
)

// RegularizedIncompleteBeta returns I_x(a, b) evaluated with Lentz's
// continued fraction. Arguments above (a+1)/(a+b+2) are mirrored through
// I_x(a,b) = 1 − I_{1−x}(b,a) so the fraction converges quickly.
func RegularizedIncompleteBeta(x, a, b float64) float64 {
	if math.IsNaN(x) || math.IsNaN(a) || math.IsNaN(b) || a <= 0 || b <= 0 {
		return math.NaN()
	}
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	if x > (a+1)/(a+b+2) {
		return 1 - RegularizedIncompleteBeta(1-x, b, a)
	}

	lnBeta := LogGamma(a) + LogGamma(b) - LogGamma(a+b)
	front := math.Exp(math.Log(x)*a+math.Log(1-x)*b-lnBeta) / a

	f, c, d := 1.0, 1.0, 0.0
	for i := 0; i <= betaMaxIterations; i++ {
		m := float64(i / 2)

		var numerator float64
		switch {
		case i == 0:
			numerator = 1
		case i%2 == 0:
			numerator = (m * (b - m) * x) / ((a + 2*m - 1) * (a + 2*m))
		default:
			numerator = -((a + m) * (a + b + m) * x) / ((a + 2*m) * (a + 2*m + 1))
		}

		d = 1 + numerator*d
		if math.Abs(d) < betaTiny {
			d = betaTiny
		}
		d = 1 / d

		c = 1 + numerator/c
		if math.Abs(c) < betaTiny {
			c = betaTiny
		}

		cd := c * d
		f *= cd
		if math.Abs(1-cd) < betaEpsilon {
			break
		}
	}
	return front * (f - 1)
}

// FTestPValue returns the upper-tail probability of the F distribution:
// 1 − I_x(df1/2, df2/2) with x = df1·f/(df1·f + df2).
func FTestPValue(f, df1, df2 float64) float64 {
	if math.IsNaN(f) || df1 <= 0 || df2 <= 0 || f <= 0 {
		return 1
	}
	if math.IsInf(f, 1) {
		return 0
	}
	x := df1 * f / (df1*f + df2)
	return clampProbability(1 - RegularizedIncompleteBeta(x, df1/2, df2/2))
}

// TTestPValue returns the two-tailed p-value of Student's t distribution:
// I_x(df/2, 1/2) with x = df/(df + t²).
func TTestPValue(t, df float64) float64 {
	if math.IsNaN(t) || df <= 0 {
		return 1
	}
	if math.IsInf(t, 0) {
		return 0
	}
	x := df / (df + t*t)
	return clampProbability(RegularizedIncompleteBeta(x, df/2, 0.5))
}

// NormalCDF approximates Φ(x) with the Abramowitz-Stegun rational
// polynomial (formula 26.2.17).
func NormalCDF(x float64) float64 {
	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)
	t := 1 / (1 + p*math.Abs(x))
	density := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	tail := density * t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	if x > 0 {
		return 1 - tail
	}
	return tail
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
