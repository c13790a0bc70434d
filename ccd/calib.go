package ccd

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-echelle/frame"
)

// SubtractBias returns img - bias.
func SubtractBias(img, bias *frame.Frame) (*frame.Frame, error) {
	if err := checkStack([]*frame.Frame{img, bias}); err != nil {
		return nil, err
	}
	out := frame.New(img.Rows, img.Cols)
	out.Header = img.Header.Clone()
	vecmath.ScaleBlock(out.Pix, bias.Pix, -1)
	vecmath.AddBlockInPlace(out.Pix, img.Pix)
	return out, nil
}

// FlatCorrect divides img by flat normalised to unit mean. Flat pixels below
// minValue are raised to minValue first; pass 0 to leave the flat as is. A
// flat that still holds zero pixels is rejected.
func FlatCorrect(img, flat *frame.Frame, minValue float64) (*frame.Frame, error) {
	if err := checkStack([]*frame.Frame{img, flat}); err != nil {
		return nil, err
	}

	norm := append([]float64(nil), flat.Pix...)
	if minValue > 0 {
		for i, v := range norm {
			if v < minValue {
				norm[i] = minValue
			}
		}
	}
	mean := stat.Mean(norm, nil)
	if mean == 0 {
		return nil, fmt.Errorf("%w: mean is zero", ErrZeroFlat)
	}

	// norm becomes mean/flat so that the division is a single multiply.
	for i, v := range norm {
		if v == 0 {
			return nil, fmt.Errorf("%w: pixel (%d, %d)", ErrZeroFlat, i/flat.Cols, i%flat.Cols)
		}
		norm[i] = mean / v
	}

	out := frame.New(img.Rows, img.Cols)
	out.Header = img.Header.Clone()
	vecmath.MulBlock(out.Pix, img.Pix, norm)
	return out, nil
}

// Normalize scales f to unit mean.
func Normalize(f *frame.Frame) (*frame.Frame, error) {
	mean := stat.Mean(f.Pix, nil)
	if mean == 0 || len(f.Pix) == 0 {
		return nil, fmt.Errorf("%w: mean is zero", ErrZeroFlat)
	}
	out := f.Clone()
	floats.Scale(1/mean, out.Pix)
	return out, nil
}
