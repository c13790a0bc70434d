package poly

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Errors returned by the fitting functions.
var (
	ErrNoPoints       = errors.New("poly: no points to fit")
	ErrLengthMismatch = errors.New("poly: x and y differ in length")
	ErrDegree         = errors.New("poly: degree must be non-negative")
	ErrNonFinite      = errors.New("poly: non-finite input")
	ErrIllConditioned = errors.New("poly: ill-conditioned fit")
)

// eps is the float64 machine epsilon.
const eps = 0x1p-52

// Fit computes the least-squares series of the given kind and degree through
// (x, y), over domain. When the points carry fewer distinct x values than
// degree+1 the degree is lowered to distinct-1. The system is solved by
// SVD with a relative singular value cutoff of len(x)*eps, so points that
// cover only a small part of a wide domain still yield a finite series.
func Fit(kind Kind, x, y []float64, degree int, domain [2]float64) (Series, error) {
	if len(x) != len(y) {
		return Series{}, ErrLengthMismatch
	}
	if len(x) == 0 {
		return Series{}, ErrNoPoints
	}
	if degree < 0 {
		return Series{}, ErrDegree
	}
	if hasNonFinite(x) || hasNonFinite(y) {
		return Series{}, ErrNonFinite
	}

	if d := distinct(x) - 1; degree > d {
		degree = d
	}

	s := Series{Kind: kind, Domain: domain}
	n, m := len(x), degree+1

	v := mat.NewDense(n, m, nil)
	for i, xi := range x {
		basis(kind, s.mapX(xi), v.RawRowView(i))
	}

	// Unit column norms keep high-degree terms from swamping the
	// singular value cutoff.
	scale := make([]float64, m)
	for j := range scale {
		scale[j] = mat.Norm(v.ColView(j), 2)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	for i := 0; i < n; i++ {
		floats.Div(v.RawRowView(i), scale)
	}

	var svd mat.SVD
	if !svd.Factorize(v, mat.SVDThin) {
		return Series{}, ErrIllConditioned
	}
	// Singular values below rcond of the largest are treated as zero, which
	// gives the minimum-norm solution for rank-deficient systems.
	rcond := float64(n) * eps
	var coef mat.VecDense
	svd.SolveVecTo(&coef, mat.NewVecDense(n, append([]float64(nil), y...)), svd.Rank(rcond))

	s.Coeffs = make([]float64, m)
	for i := range s.Coeffs {
		s.Coeffs[i] = coef.AtVec(i) / scale[i]
	}
	if hasNonFinite(s.Coeffs) {
		return Series{}, ErrIllConditioned
	}

	return s, nil
}

// FitChebyshev fits a Chebyshev series over the span of x.
func FitChebyshev(x, y []float64, degree int) (Series, error) {
	if len(x) == 0 {
		return Series{}, ErrNoPoints
	}
	return Fit(Chebyshev, x, y, degree, [2]float64{floats.Min(x), floats.Max(x)})
}

// FitLegendre fits a Legendre series over the given domain.
func FitLegendre(x, y []float64, degree int, domain [2]float64) (Series, error) {
	return Fit(Legendre, x, y, degree, domain)
}

// Residual returns y - s(x) for every sample.
func Residual(s Series, x, y []float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - s.Eval(x[i])
	}
	return out
}

func hasNonFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}

func distinct(x []float64) int {
	s := append([]float64(nil), x...)
	sort.Float64s(s)

	n := 1
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1] {
			n++
		}
	}
	return n
}
