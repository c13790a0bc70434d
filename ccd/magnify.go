package ccd

import (
	"fmt"

	"github.com/cwbudde/algo-echelle/frame"
	"github.com/cwbudde/algo-echelle/internal/interp"
)

// DefaultMagnification is the vertical zoom applied before tracing.
const DefaultMagnification = 4

// MagnifyY stretches f along the spatial axis to mag times as many rows,
// interpolating every column with the given order. The end rows are kept
// and flux is not conserved.
func MagnifyY(f *frame.Frame, mag int, order interp.Order) (*frame.Frame, error) {
	if mag < 1 {
		return nil, fmt.Errorf("%w: magnification %d", ErrParameter, mag)
	}
	if !order.Valid() {
		return nil, fmt.Errorf("%w: interpolation order %d", ErrParameter, int(order))
	}

	out := frame.New(f.Rows*mag, f.Cols)
	out.Header = f.Header.Clone()

	src := make([]float64, f.Rows)
	dst := make([]float64, out.Rows)
	for c := 0; c < f.Cols; c++ {
		for r := range src {
			src[r] = f.At(r, c)
		}
		interp.Zoom(dst, src, order)
		for r, v := range dst {
			out.Set(r, c, v)
		}
	}

	out.Header.Set("HISTORY", fmt.Sprintf("magnified %dx along rows (%s)", mag, order), "")
	return out, nil
}
