package interp

import (
	"fmt"
	"math"
)

// Order selects the interpolation kernel.
type Order int

const (
	Linear Order = 1
	Cubic  Order = 3
)

func (o Order) String() string {
	switch o {
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Valid reports whether o names a supported kernel.
func (o Order) Valid() bool {
	return o == Linear || o == Cubic
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// clamp returns samples[i] with i limited to the valid range.
func clamp(samples []float64, i int) float64 {
	if i < 0 {
		return samples[0]
	}
	if i >= len(samples) {
		return samples[len(samples)-1]
	}
	return samples[i]
}

// At evaluates samples at fractional position x. Positions outside
// [0, len-1] take the nearest edge sample.
func At(samples []float64, x float64, order Order) float64 {
	n := len(samples)
	switch {
	case n == 0:
		return 0
	case n == 1 || x <= 0:
		return samples[0]
	case x >= float64(n-1):
		return samples[n-1]
	}

	i := int(math.Floor(x))
	t := x - float64(i)
	if order == Cubic {
		return Hermite4(t, clamp(samples, i-1), samples[i], clamp(samples, i+1), clamp(samples, i+2))
	}
	return samples[i] + t*(clamp(samples, i+1)-samples[i])
}

// Zoom resamples src onto len(dst) points. Output sample k sits at input
// position k*(len(src)-1)/(len(dst)-1), so the first and last samples are
// copied unchanged.
func Zoom(dst, src []float64, order Order) {
	if len(dst) == 0 {
		return
	}
	if len(src) == 0 {
		clear(dst)
		return
	}
	if len(dst) == 1 {
		dst[0] = src[0]
		return
	}

	scale := float64(len(src)-1) / float64(len(dst)-1)
	for k := range dst {
		dst[k] = At(src, float64(k)*scale, order)
	}
	dst[len(dst)-1] = src[len(src)-1]
}
