package apall

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-echelle/frame"
	"github.com/cwbudde/algo-echelle/internal/testutil"
)

func gaussianProfile(n int, a, mu, sigma, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + gauss(float64(i), a, mu, sigma)
	}
	return out
}

func TestFitProfile_Symmetric(t *testing.T) {
	l := NewLocator()
	g, err := l.FitProfile(gaussianProfile(10, 4000, 4.5, 2, 100))
	require.NoError(t, err)

	assert.InDelta(t, 4.5, g.Center, 1e-4)
	assert.Greater(t, g.Amplitude, 0.0)
	assert.Greater(t, g.Sigma, 0.0)
}

func TestFitProfile_RecoversCenter(t *testing.T) {
	l := NewLocator()
	for _, mu := range []float64{3.2, 4.8, 5.0, 5.5, 6.1} {
		g, err := l.FitProfile(gaussianProfile(10, 3000, mu, 1.5, 500))
		require.NoError(t, err, "mu=%g", mu)
		assert.InDelta(t, mu, g.Center, 0.08, "mu=%g", mu)
	}
}

func TestFitProfile_Failures(t *testing.T) {
	l := NewLocator()

	for name, profile := range map[string][]float64{
		"flat":  {7, 7, 7, 7, 7, 7, 7, 7, 7, 7},
		"short": {1, 2},
		"empty": nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := l.FitProfile(profile)
			assert.ErrorIs(t, err, ErrFitNotConverged)
		})
	}
}

func TestFitProfile_IterationLimit(t *testing.T) {
	l := &Locator{Guess: [3]float64{4000, 0, 2}, MaxIterations: 1}
	_, err := l.FitProfile(gaussianProfile(10, 4000, 5.3, 2, 0))
	assert.ErrorIs(t, err, ErrFitNotConverged)
}

func TestFitProfile_DoesNotModifyInput(t *testing.T) {
	p := gaussianProfile(10, 4000, 5, 2, 100)
	before := append([]float64(nil), p...)
	_, _ = NewLocator().FitProfile(p)
	assert.Equal(t, before, p)
}

func TestLocate(t *testing.T) {
	f := testutil.RidgeFrame(60, 40, 100, testutil.Straight(30.4, 400, 1.5))
	l := NewLocator()

	box := Box{MinusX: -5, PlusX: 5, MinusY: -5, PlusY: 5}
	for _, y := range []float64{30, 30.4, 29.2} {
		row, err := l.Locate(f, 20, y, box)
		require.NoError(t, err)
		assert.InDelta(t, 30.4, row, 0.08, "guess %g", y)
	}

	// Column band clipped at the left edge.
	row, err := l.Locate(f, 0, 30, box)
	require.NoError(t, err)
	assert.InDelta(t, 30.4, row, 0.08)
}

func TestLocate_FractionalGuessSharesWindow(t *testing.T) {
	f := testutil.RidgeFrame(60, 40, 100, testutil.Straight(30.4, 400, 1.5))
	l := NewLocator()
	box := Box{MinusX: -5, PlusX: 5, MinusY: -5, PlusY: 5}

	// 30 and 30.9 both open the window at row 25.
	a, err := l.Locate(f, 20, 30, box)
	require.NoError(t, err)
	b, err := l.Locate(f, 20, 30.9, box)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLocate_OutOfBounds(t *testing.T) {
	f := testutil.RidgeFrame(30, 40, 100, testutil.Straight(2, 400, 1.5))
	l := NewLocator()

	_, err := l.Locate(f, 20, 0, Box{MinusX: -5, PlusX: 5, MinusY: -22, PlusY: 22})
	require.ErrorIs(t, err, frame.ErrOutOfBounds)

	var be *frame.BoundsError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, -22, be.Row0)

	_, err = l.Locate(f, 40, 10, Box{MinusX: -5, PlusX: 5, MinusY: -5, PlusY: 5})
	assert.ErrorIs(t, err, frame.ErrOutOfBounds)
	_, err = l.Locate(f, -1, 10, Box{MinusX: -5, PlusX: 5, MinusY: -5, PlusY: 5})
	assert.ErrorIs(t, err, frame.ErrOutOfBounds)
}

func TestLocate_BlankColumns(t *testing.T) {
	f := testutil.RidgeFrame(60, 40, 100, testutil.Straight(30, 400, 1.5))
	testutil.FlattenColumns(f, 10, 30, 100)

	_, err := NewLocator().Locate(f, 20, 30, Box{MinusX: -5, PlusX: 5, MinusY: -5, PlusY: 5})
	assert.ErrorIs(t, err, ErrFitNotConverged)
}

func TestGaussianEval(t *testing.T) {
	g := Gaussian{Amplitude: 2, Center: 1, Sigma: 0.5}
	assert.InDelta(t, 2, g.Eval(1), 1e-15)
	assert.InDelta(t, 2*math.Exp(-2), g.Eval(2), 1e-15)
}

func BenchmarkFitProfile(b *testing.B) {
	l := NewLocator()
	p := gaussianProfile(10, 4000, 5.3, 2, 100)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := l.FitProfile(p); err != nil {
			b.Fatal(err)
		}
	}
}
