package apall

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-echelle/poly"
)

// DefaultBackgroundOrder is the Chebyshev degree of the background fit.
const DefaultBackgroundOrder = 2

// FitBackground fits a Chebyshev polynomial of the given order to the
// background bands of data and returns data minus the fit evaluated over the
// whole window. data must hold s.Width() samples at offsets
// s.LowMin..s.HighMax.
func FitBackground(data []float64, s Sample, order int) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, &SampleError{Spec: s.String(), Err: err}
	}
	if len(data) != s.Width() {
		return nil, fmt.Errorf("%w: got %d samples, sample %s needs %d", ErrWindowLength, len(data), s, s.Width())
	}

	offsets := s.Offsets()
	mask := s.Mask()

	xs := make([]float64, 0, len(data))
	ys := make([]float64, 0, len(data))
	for i, bg := range mask {
		if bg {
			xs = append(xs, offsets[i])
			ys = append(ys, data[i])
		}
	}

	series, err := poly.Fit(poly.Chebyshev, xs, ys, order, [2]float64{offsets[0], offsets[len(offsets)-1]})
	if err != nil {
		return nil, fmt.Errorf("apall: background fit: %w", err)
	}

	residual := make([]float64, len(data))
	vecmath.ScaleBlock(residual, series.EvalAll(offsets), -1)
	vecmath.AddBlockInPlace(residual, data)

	return residual, nil
}

// ExtractSignal returns the samples of data that lie strictly between the
// background bands of s.
func ExtractSignal(data []float64, s Sample) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, &SampleError{Spec: s.String(), Err: err}
	}
	if len(data) != s.Width() {
		return nil, fmt.Errorf("%w: got %d samples, sample %s needs %d", ErrWindowLength, len(data), s, s.Width())
	}

	mask := s.SignalMask()
	out := make([]float64, 0, s.HighMin-s.LowMax-1)
	for i, sig := range mask {
		if sig {
			out = append(out, data[i])
		}
	}
	return out, nil
}
