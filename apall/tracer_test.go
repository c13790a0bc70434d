package apall

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-echelle/frame"
	"github.com/cwbudde/algo-echelle/internal/testutil"
)

// seeded returns an aperture seeded at (x, y) with a +-5 row profile window.
func seeded(id int, x, y float64) *Aperture {
	return &Aperture{
		Image:      "synthetic",
		ID:         id,
		Beam:       id,
		Center:     Coord{X: x, Y: y},
		Low:        Coord{X: -x, Y: -5},
		High:       Coord{X: x, Y: 5},
		Background: Background{Function: "chebyshev", Order: 2, Sample: DefaultSample},
		Axis:       2,
	}
}

func sineRidge(col float64) float64 {
	return 50 + 5*math.Sin(col/60)
}

// bandCenter is the mean ridge center over the columns a profile at x sums.
func bandCenter(x float64, nsum, cols int) float64 {
	c0 := max(int(x)-nsum/2, 0)
	c1 := min(int(x)+nsum/2, cols)
	sum := 0.0
	for c := c0; c < c1; c++ {
		sum += sineRidge(float64(c))
	}
	return sum / float64(c1-c0)
}

func TestTraceAperture_FollowsRidge(t *testing.T) {
	ridge := testutil.Ridge{
		Center:    sineRidge,
		Amplitude: func(float64) float64 { return 400 },
		Sigma:     1.5,
	}
	f := testutil.RidgeFrame(100, 200, 100, ridge)
	tr := NewTracer()

	pts, seed, err := tr.TraceAperture(f, seeded(1, 100, sineRidge(100)))
	require.NoError(t, err)
	require.Equal(t, Found, seed.Status)
	require.Len(t, pts, 20) // seed, 110..190, 90..0

	assert.Equal(t, 100.0, pts[0].X)
	assert.Equal(t, 110.0, pts[1].X)
	assert.Equal(t, 190.0, pts[9].X)
	assert.Equal(t, 90.0, pts[10].X)
	assert.Equal(t, 0.0, pts[19].X)

	for _, p := range pts {
		assert.InDelta(t, bandCenter(p.X, 10, 200), p.Y, 0.1, "column %g", p.X)
	}
}

func TestTraceAperture_GapsAtDegradedColumns(t *testing.T) {
	ridge := testutil.Ridge{
		Center:    sineRidge,
		Amplitude: func(float64) float64 { return 400 },
		Sigma:     1.5,
	}
	f := testutil.RidgeFrame(100, 200, 100, ridge)
	testutil.FlattenColumns(f, 155, 200, 100)
	testutil.FlattenColumns(f, 0, 35, 100)

	pts, _, err := NewTracer().TraceAperture(f, seeded(1, 100, sineRidge(100)))
	require.NoError(t, err)

	var xs []float64
	for _, p := range pts {
		xs = append(xs, p.X)
		assert.InDelta(t, bandCenter(p.X, 10, 200), p.Y, 0.1, "column %g", p.X)
	}
	sort.Float64s(xs)
	assert.Equal(t, []float64{40, 50, 60, 70, 80, 90, 100, 110, 120, 130, 140, 150}, xs)
}

func TestTraceAperture_LostSeed(t *testing.T) {
	f := testutil.RidgeFrame(100, 200, 100, testutil.Straight(50, 400, 1.5))
	testutil.FlattenColumns(f, 90, 110, 100)

	pts, seed, err := NewTracer().TraceAperture(f, seeded(3, 100, 50))
	require.NoError(t, err)
	assert.Nil(t, pts)
	assert.Equal(t, Lost, seed.Status)
	assert.ErrorIs(t, seed.Err, ErrFitNotConverged)

	var te *TraceError
	require.ErrorAs(t, seed.Err, &te)
	assert.Equal(t, 3, te.Aperture)
	assert.Equal(t, 100.0, te.Column)
}

func TestTrace_Concurrent(t *testing.T) {
	rows := []float64{12, 30, 48, 66, 84}
	var ridges []testutil.Ridge
	var aps []*Aperture
	for i, r := range rows {
		ridges = append(ridges, testutil.Straight(r+0.3, 400, 1.5))
		aps = append(aps, seeded(i+1, 100, r))
	}
	// A blanked seed column is lost without failing the call.
	lostSeed := seeded(6, 100, 48)
	f := testutil.RidgeFrame(100, 200, 100, ridges...)

	tr := NewTracer(WithWorkers(3))
	require.NoError(t, tr.Trace(context.Background(), f, aps))

	for i, ap := range aps {
		require.Equal(t, StageTraced, ap.Stage, "aperture %d", ap.ID)
		require.Len(t, ap.Points, 20)
		for _, p := range ap.Points {
			assert.InDelta(t, rows[i]+0.3, p.Y, 0.1)
		}
	}

	g := f.Clone()
	testutil.FlattenColumns(g, 90, 110, 100)
	require.NoError(t, tr.Trace(context.Background(), g, []*Aperture{lostSeed}))
	assert.Equal(t, StageLost, lostSeed.Stage)
	assert.ErrorIs(t, lostSeed.Lost, ErrFitNotConverged)
	assert.Empty(t, lostSeed.Points)
}

func TestTrace_OutOfBoundsSeedIsLost(t *testing.T) {
	f := testutil.RidgeFrame(30, 100, 100, testutil.Straight(2, 400, 1.5))
	ap := seeded(1, 50, 0)
	ap.Low.Y, ap.High.Y = -22, 22

	require.NoError(t, NewTracer().Trace(context.Background(), f, []*Aperture{ap}))
	assert.Equal(t, StageLost, ap.Stage)
	assert.ErrorIs(t, ap.Lost, frame.ErrOutOfBounds)
}

func TestTrace_Canceled(t *testing.T) {
	f := testutil.RidgeFrame(100, 200, 100, testutil.Straight(50, 400, 1.5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTracer().Trace(ctx, f, []*Aperture{seeded(1, 100, 50)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewTracer_Options(t *testing.T) {
	tr := NewTracer(WithStep(5), WithNSum(6), WithNLost(7), WithInitialGuess(100, 1, 3), WithMaxIterations(50))
	assert.Equal(t, 5, tr.Step)
	assert.Equal(t, 6, tr.NSum)
	assert.Equal(t, 7, tr.NLost)
	assert.Equal(t, [3]float64{100, 1, 3}, tr.Locator.Guess)
	assert.Equal(t, 50, tr.Locator.MaxIterations)

	b := tr.box(&Aperture{Low: Coord{Y: -4}, High: Coord{Y: 6}})
	assert.Equal(t, Box{MinusX: -3, PlusX: 3, MinusY: -4, PlusY: 6}, b)
}
