package apall

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultSample is the fixed extraction window: 45 rows around the trace
// with 8-row background bands on each side.
const DefaultSample = "-22:-15,15:22"

// Sample is a background sample specification "LowMin:LowMax,HighMin:HighMax"
// in integer pixel offsets from the trace center. The window it describes
// covers [LowMin, HighMax]; the two bands are background and the gap between
// them is signal.
type Sample struct {
	LowMin, LowMax   int
	HighMin, HighMax int
}

// ParseSample parses and validates a sample specification.
func ParseSample(spec string) (Sample, error) {
	parts := strings.Split(strings.TrimSpace(spec), ",")
	if len(parts) != 2 {
		return Sample{}, &SampleError{Spec: spec, Err: fmt.Errorf("%w: want two comma separated bands", ErrInvalidSample)}
	}

	lo0, lo1, err := parseBand(parts[0])
	if err != nil {
		return Sample{}, &SampleError{Spec: spec, Err: err}
	}
	hi0, hi1, err := parseBand(parts[1])
	if err != nil {
		return Sample{}, &SampleError{Spec: spec, Err: err}
	}

	s := Sample{LowMin: lo0, LowMax: lo1, HighMin: hi0, HighMax: hi1}
	if err := s.Validate(); err != nil {
		return Sample{}, &SampleError{Spec: spec, Err: err}
	}
	return s, nil
}

// MustParseSample is like ParseSample but panics on error.
func MustParseSample(spec string) Sample {
	s, err := ParseSample(spec)
	if err != nil {
		panic(err)
	}
	return s
}

func parseBand(band string) (int, int, error) {
	ends := strings.Split(strings.TrimSpace(band), ":")
	if len(ends) != 2 {
		return 0, 0, fmt.Errorf("%w: band %q is not min:max", ErrInvalidSample, band)
	}
	lo, err := parseOffset(ends[0])
	if err != nil {
		return 0, 0, err
	}
	hi, err := parseOffset(ends[1])
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// parseOffset accepts integers and whole-valued reals such as "-22.", the
// form IRAF writes into aperture databases.
func parseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSample, err)
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: offset %q is not a whole pixel", ErrInvalidSample, s)
	}
	return int(v), nil
}

// Validate checks that the bands are ordered and bracket a non-empty signal
// gap.
func (s Sample) Validate() error {
	switch {
	case s.LowMin > s.LowMax:
		return fmt.Errorf("%w: low band %d:%d is reversed", ErrInvalidSample, s.LowMin, s.LowMax)
	case s.HighMin > s.HighMax:
		return fmt.Errorf("%w: high band %d:%d is reversed", ErrInvalidSample, s.HighMin, s.HighMax)
	case s.LowMax+1 >= s.HighMin:
		return fmt.Errorf("%w: bands %d:%d and %d:%d leave no signal gap",
			ErrInvalidSample, s.LowMin, s.LowMax, s.HighMin, s.HighMax)
	}
	return nil
}

func (s Sample) String() string {
	return fmt.Sprintf("%d:%d,%d:%d", s.LowMin, s.LowMax, s.HighMin, s.HighMax)
}

// Width is the number of samples in the window, HighMax-LowMin+1.
func (s Sample) Width() int {
	return s.HighMax - s.LowMin + 1
}

// Offsets returns the pixel offset of every window index.
func (s Sample) Offsets() []float64 {
	out := make([]float64, s.Width())
	for i := range out {
		out[i] = float64(s.LowMin + i)
	}
	return out
}

// Mask marks background samples: indices 0..LowMax-LowMin and
// HighMin-LowMin..Width-1.
func (s Sample) Mask() []bool {
	mask := make([]bool, s.Width())
	for i := 0; i <= s.LowMax-s.LowMin; i++ {
		mask[i] = true
	}
	for i := s.HighMin - s.LowMin; i < len(mask); i++ {
		mask[i] = true
	}
	return mask
}

// SignalMask is the complement of Mask.
func (s Sample) SignalMask() []bool {
	mask := s.Mask()
	for i := range mask {
		mask[i] = !mask[i]
	}
	return mask
}

// sampleFor returns the aperture's own sample, or def when it has none or
// uses the "*" wildcard.
func sampleFor(ap *Aperture, def Sample) (Sample, error) {
	if spec := strings.TrimSpace(ap.Background.Sample); spec == "" || spec == "*" {
		return def, nil
	}
	s, err := ParseSample(ap.Background.Sample)
	if err != nil {
		return Sample{}, fmt.Errorf("aperture %d: %w", ap.ID, err)
	}
	return s, nil
}
