package poly

import (
	"fmt"
	"math"
)

// Kind selects the polynomial basis of a Series.
type Kind int

const (
	Chebyshev Kind = iota
	Legendre
)

func (k Kind) String() string {
	switch k {
	case Chebyshev:
		return "chebyshev"
	case Legendre:
		return "legendre"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Series is a finite orthogonal polynomial series over a domain.
type Series struct {
	Kind   Kind
	Coeffs []float64
	Domain [2]float64
}

// Degree returns the highest basis index carried by the series.
func (s Series) Degree() int {
	return len(s.Coeffs) - 1
}

// mapX maps x from the series domain onto [-1, 1].
func (s Series) mapX(x float64) float64 {
	lo, hi := s.Domain[0], s.Domain[1]
	if hi == lo {
		return 0
	}
	return (2*x - (lo + hi)) / (hi - lo)
}

// Eval evaluates the series at x.
func (s Series) Eval(x float64) float64 {
	if len(s.Coeffs) == 0 {
		return 0
	}

	t := s.mapX(x)
	sum := s.Coeffs[0]
	if len(s.Coeffs) == 1 {
		return sum
	}

	pPrev, p := 1.0, t
	sum += s.Coeffs[1] * p
	for k := 1; k < len(s.Coeffs)-1; k++ {
		pNext := s.next(k, t, p, pPrev)
		pPrev, p = p, pNext
		sum += s.Coeffs[k+1] * p
	}

	return sum
}

// EvalAll evaluates the series at each x.
func (s Series) EvalAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = s.Eval(x)
	}
	return out
}

// Finite reports whether the series evaluates to a finite value at every
// integer x in [lo, hi].
func (s Series) Finite(lo, hi int) bool {
	for x := lo; x <= hi; x++ {
		v := s.Eval(float64(x))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// next returns basis k+1 given basis k (p) and k-1 (pPrev) at t.
func (s Series) next(k int, t, p, pPrev float64) float64 {
	if s.Kind == Legendre {
		kf := float64(k)
		return ((2*kf+1)*t*p - kf*pPrev) / (kf + 1)
	}
	return 2*t*p - pPrev
}

// basis fills row with the first len(row) basis functions at t.
func basis(kind Kind, t float64, row []float64) {
	s := Series{Kind: kind}
	for k := range row {
		switch k {
		case 0:
			row[k] = 1
		case 1:
			row[k] = t
		default:
			row[k] = s.next(k-1, t, row[k-1], row[k-2])
		}
	}
}
