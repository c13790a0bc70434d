package ccd

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-echelle/frame"
)

// ClipSigma is the rejection threshold, in standard deviations around the
// median, used when combining calibration frames.
const ClipSigma = 3.0

func checkStack(frames []*frame.Frame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	for i, f := range frames[1:] {
		if !frames[0].SameShape(f) {
			return fmt.Errorf("%w: frame %d is %dx%d, frame 0 is %dx%d",
				ErrShape, i+1, f.Rows, f.Cols, frames[0].Rows, frames[0].Cols)
		}
	}
	return nil
}

// median returns the median of v, sorting it in place.
func median(v []float64) float64 {
	sort.Float64s(v)
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return 0.5 * (v[n/2-1] + v[n/2])
}

// clip keeps the values of stack within ClipSigma population standard
// deviations of their median. The result aliases keep.
func clip(stack, keep []float64) []float64 {
	med := median(append(keep[:0], stack...))
	std := stat.PopStdDev(stack, nil)

	keep = keep[:0]
	for _, v := range stack {
		if d := v - med; d <= ClipSigma*std && -d <= ClipSigma*std {
			keep = append(keep, v)
		}
	}
	return keep
}

// combine applies reduce to the clipped pixel stack at every position.
func combine(frames []*frame.Frame, reduce func([]float64) float64) (*frame.Frame, error) {
	if err := checkStack(frames); err != nil {
		return nil, err
	}

	out := frame.New(frames[0].Rows, frames[0].Cols)
	out.Header = frames[0].Header.Clone()

	stack := make([]float64, len(frames))
	keep := make([]float64, 0, len(frames))
	for i := range out.Pix {
		for k, f := range frames {
			stack[k] = f.Pix[i]
		}
		keep = clip(stack, keep)
		out.Pix[i] = reduce(keep)
	}
	return out, nil
}

// ZeroCombine builds a master bias: per pixel, values further than
// ClipSigma standard deviations from the median are rejected and the rest
// averaged.
func ZeroCombine(frames []*frame.Frame) (*frame.Frame, error) {
	return combine(frames, func(v []float64) float64 { return stat.Mean(v, nil) })
}

// FlatCombine builds a master flat with the same rejection as ZeroCombine,
// taking the median of the surviving values.
func FlatCombine(frames []*frame.Frame) (*frame.Frame, error) {
	return combine(frames, median)
}

// Average returns the pixel mean of a and b.
func Average(a, b *frame.Frame) (*frame.Frame, error) {
	if err := checkStack([]*frame.Frame{a, b}); err != nil {
		return nil, err
	}
	out := frame.New(a.Rows, a.Cols)
	out.Header = a.Header.Clone()
	vecmath.AddMulBlock(out.Pix, a.Pix, b.Pix, 0.5)
	return out, nil
}
