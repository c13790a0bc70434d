package apall

import (
	"fmt"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/cwbudde/algo-echelle/frame"
)

// Box bounds the block summed around a guessed center: columns
// [x+MinusX, x+PlusX) and rows [y+MinusY, y+PlusY).
type Box struct {
	MinusX, PlusX float64
	MinusY, PlusY float64
}

// Gaussian is a fitted profile A*exp(-(i-Center)^2 / (2*Sigma^2)).
type Gaussian struct {
	Amplitude float64
	Center    float64
	Sigma     float64
}

// Eval evaluates the profile at x.
func (g Gaussian) Eval(x float64) float64 {
	return gauss(x, g.Amplitude, g.Center, g.Sigma)
}

func gauss(x, a, mu, sigma float64) float64 {
	d := x - mu
	return a * math.Exp(-d*d/(2*sigma*sigma))
}

// Locator finds the spatial center of a trace at one column.
type Locator struct {
	Guess         [3]float64
	MaxIterations int
}

// NewLocator returns a locator configured from opts.
func NewLocator(opts ...Option) *Locator {
	o := ApplyOptions(opts...)
	return &Locator{Guess: o.InitialGuess, MaxIterations: o.MaxIterations}
}

// Locate sums the block around (x, y) along the dispersion axis, removes the
// profile minimum and fits a Gaussian. It returns the absolute row of the
// fitted center, floor(y+box.MinusY)+μ, so a fractional y shifts the window
// origin to the row below it. The column band is clipped to the image; the
// row window is not. Failures wrap ErrFitNotConverged or frame.ErrOutOfBounds.
func (l *Locator) Locate(f *frame.Frame, x, y float64, box Box) (float64, error) {
	r0 := int(math.Floor(y + box.MinusY))
	r1 := int(math.Floor(y + box.PlusY))
	c0 := max(int(math.Floor(x+box.MinusX)), 0)
	c1 := min(int(math.Floor(x+box.PlusX)), f.Cols)

	if x < 0 || x >= float64(f.Cols) {
		return 0, &frame.BoundsError{Row0: r0, Row1: r1, Col0: c0, Col1: c1, Rows: f.Rows, Cols: f.Cols}
	}

	profile, err := f.CollapseRows(r0, r1, c0, c1)
	if err != nil {
		return 0, err
	}

	g, err := l.FitProfile(profile)
	if err != nil {
		return 0, err
	}

	return float64(r0) + g.Center, nil
}

// FitProfile fits a Gaussian to a baseline-free copy of profile, indexed
// 0..len(profile)-1.
func (l *Locator) FitProfile(profile []float64) (Gaussian, error) {
	n := len(profile)
	if n < 3 {
		return Gaussian{}, fmt.Errorf("%w: %d samples", ErrFitNotConverged, n)
	}

	data := append([]float64(nil), profile...)
	floats.AddConst(-floats.Min(data), data)
	if floats.Max(data) == 0 {
		return Gaussian{}, fmt.Errorf("%w: flat profile", ErrFitNotConverged)
	}

	residual := func(dst, p []float64) {
		for i := range dst {
			dst[i] = gauss(float64(i), p[0], p[1], p[2]) - data[i]
		}
	}

	return l.solve(residual, n)
}

func (l *Locator) solve(residual func(dst, p []float64), n int) (g Gaussian, err error) {
	// lm panics when the damped normal equations are singular.
	defer func() {
		if r := recover(); r != nil {
			g, err = Gaussian{}, fmt.Errorf("%w: %v", ErrFitNotConverged, r)
		}
	}()

	jac := lm.NumJac{Func: residual}
	problem := lm.LMProblem{
		Dim:        3,
		Size:       n,
		Func:       residual,
		Jac:        jac.Jac,
		InitParams: l.Guess[:],
		Tau:        1e-3,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	iters := l.MaxIterations
	if iters <= 0 {
		iters = DefaultOptions().MaxIterations
	}

	res, err := lm.LM(problem, &lm.Settings{Iterations: iters, ObjectiveTol: 1e-16})
	if err != nil {
		return Gaussian{}, fmt.Errorf("%w: %w", ErrFitNotConverged, err)
	}
	if res.Status == optimize.IterationLimit {
		return Gaussian{}, fmt.Errorf("%w: iteration limit %d reached", ErrFitNotConverged, iters)
	}

	g = Gaussian{Amplitude: res.X[0], Center: res.X[1], Sigma: math.Abs(res.X[2])}
	if err := g.check(n); err != nil {
		return Gaussian{}, err
	}
	return g, nil
}

// check rejects solutions that are numerically valid but do not describe a
// peak inside the profile.
func (g Gaussian) check(n int) error {
	for _, v := range []float64{g.Amplitude, g.Center, g.Sigma} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite parameters %+v", ErrFitNotConverged, g)
		}
	}
	switch {
	case g.Amplitude <= 0:
		return fmt.Errorf("%w: amplitude %g", ErrFitNotConverged, g.Amplitude)
	case g.Sigma < 1e-6:
		return fmt.Errorf("%w: sigma %g", ErrFitNotConverged, g.Sigma)
	case g.Center < -0.5 || g.Center > float64(n)-0.5:
		return fmt.Errorf("%w: center %g outside profile of %d samples", ErrFitNotConverged, g.Center, n)
	}
	return nil
}
