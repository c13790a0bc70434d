package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-echelle/frame"
)

// Ridge describes a synthetic spectral order: a Gaussian cross-dispersion
// profile whose center and peak height vary with column.
type Ridge struct {
	Center    func(col float64) float64
	Amplitude func(col float64) float64
	Sigma     float64
}

// Straight returns a constant-row ridge with a constant amplitude.
func Straight(row, amplitude, sigma float64) Ridge {
	return Ridge{
		Center:    func(float64) float64 { return row },
		Amplitude: func(float64) float64 { return amplitude },
		Sigma:     sigma,
	}
}

// RidgeFrame renders ridges over a flat background.
func RidgeFrame(rows, cols int, background float64, ridges ...Ridge) *frame.Frame {
	f := frame.New(rows, cols)
	for c := 0; c < cols; c++ {
		x := float64(c)
		for r := 0; r < rows; r++ {
			v := background
			for _, rd := range ridges {
				d := float64(r) - rd.Center(x)
				v += rd.Amplitude(x) * math.Exp(-d*d/(2*rd.Sigma*rd.Sigma))
			}
			f.Set(r, c, v)
		}
	}
	return f
}

// FlattenColumns overwrites columns [c0,c1) with value, wiping any signal.
func FlattenColumns(f *frame.Frame, c0, c1 int, value float64) {
	for r := 0; r < f.Rows; r++ {
		for c := max(c0, 0); c < min(c1, f.Cols); c++ {
			f.Set(r, c, value)
		}
	}
}

// AddNoise adds deterministic uniform noise in [-amplitude, amplitude].
func AddNoise(f *frame.Frame, seed int64, amplitude float64) {
	AddNoiseSlice(f.Pix, seed, amplitude)
}

// AddNoiseSlice is AddNoise for a plain slice.
func AddNoiseSlice(data []float64, seed int64, amplitude float64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range data {
		data[i] += (rng.Float64()*2 - 1) * amplitude
	}
}
