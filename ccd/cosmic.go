package ccd

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-echelle/frame"
)

// CosmicOptions configures CosmicRayMedian.
type CosmicOptions struct {
	MBox      int     // median box used to detect outliers
	RBox      int     // median box used to replace them
	Threshold float64 // detection threshold in noise standard deviations
	Passes    int
}

// CosmicOption mutates CosmicOptions.
type CosmicOption func(*CosmicOptions)

// DefaultCosmicOptions returns a 5x5 detection and replacement box, a five
// sigma threshold and up to 20 passes.
func DefaultCosmicOptions() CosmicOptions {
	return CosmicOptions{MBox: 5, RBox: 5, Threshold: 5, Passes: 20}
}

// WithMBox sets the detection box size.
func WithMBox(n int) CosmicOption {
	return func(o *CosmicOptions) { o.MBox = n }
}

// WithRBox sets the replacement box size.
func WithRBox(n int) CosmicOption {
	return func(o *CosmicOptions) { o.RBox = n }
}

// WithThreshold sets the detection threshold.
func WithThreshold(sigma float64) CosmicOption {
	return func(o *CosmicOptions) { o.Threshold = sigma }
}

// WithPasses sets the maximum number of passes.
func WithPasses(n int) CosmicOption {
	return func(o *CosmicOptions) { o.Passes = n }
}

// CosmicRayMedian replaces pixels that exceed the local median by more than
// Threshold times the image noise, estimated as the standard deviation of
// the median-subtracted frame, with the median of their RBox neighbourhood.
// Passes repeat on the cleaned frame until none is flagged. It returns the
// cleaned frame and the number of replaced pixels.
func CosmicRayMedian(f *frame.Frame, opts ...CosmicOption) (*frame.Frame, int, error) {
	o := DefaultCosmicOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.MBox < 1 || o.RBox < 1 || o.Threshold <= 0 || o.Passes < 1 {
		return nil, 0, fmt.Errorf("%w: cosmic ray options %+v", ErrParameter, o)
	}

	out := f.Clone()
	diff := make([]float64, len(f.Pix))
	total := 0

	for pass := 0; pass < o.Passes; pass++ {
		med := MedianFilter(out, o.MBox)
		vecmath.ScaleBlock(diff, med.Pix, -1)
		vecmath.AddBlockInPlace(diff, out.Pix)

		limit := o.Threshold * stat.PopStdDev(diff, nil)
		var hits []int
		for i, d := range diff {
			if d > limit {
				hits = append(hits, i)
			}
		}
		if len(hits) == 0 {
			break
		}

		repl := med
		if o.RBox != o.MBox {
			repl = MedianFilter(out, o.RBox)
		}
		for _, i := range hits {
			out.Pix[i] = repl.Pix[i]
		}
		total += len(hits)
	}

	out.Header.Set("HISTORY", fmt.Sprintf("cosmic ray median: %d pixels replaced", total), "")
	return out, total, nil
}

// reflect maps i into [0, n) by mirroring about the edges (d c b a | a b c d).
func reflect(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

// MedianFilter returns the median of the size x size box around every pixel,
// mirroring the frame at its edges.
func MedianFilter(f *frame.Frame, size int) *frame.Frame {
	out := frame.New(f.Rows, f.Cols)
	lo := -(size / 2)
	hi := lo + size
	buf := make([]float64, 0, size*size)

	for r := 0; r < f.Rows; r++ {
		for c := 0; c < f.Cols; c++ {
			buf = buf[:0]
			for dr := lo; dr < hi; dr++ {
				row := f.Row(reflect(r+dr, f.Rows))
				for dc := lo; dc < hi; dc++ {
					buf = append(buf, row[reflect(c+dc, f.Cols)])
				}
			}
			out.Set(r, c, median(buf))
		}
	}
	return out
}
