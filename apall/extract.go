package apall

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-echelle/frame"
	"github.com/cwbudde/algo-echelle/poly"
)

// SkipPolicy reports whether the aperture at output row index should be left
// unextracted. Skipped rows stay zero.
type SkipPolicy func(index int, ap *Aperture) bool

// SkipFirst skips the first n output rows.
func SkipFirst(n int) SkipPolicy {
	return func(index int, _ *Aperture) bool { return index < n }
}

// SkipNone extracts every aperture.
func SkipNone(int, *Aperture) bool { return false }

// SkipIDs skips apertures by database id.
func SkipIDs(ids ...int) SkipPolicy {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(_ int, ap *Aperture) bool {
		_, ok := set[ap.ID]
		return ok
	}
}

// Extractor sums the background-subtracted signal across each smoothed
// trace, column by column.
type Extractor struct {
	Sample Sample
	// ApertureSamples makes each aperture's database sample replace Sample.
	ApertureSamples bool

	BackgroundOrder int
	Skip            SkipPolicy
	Workers         int
	Logger          *slog.Logger
}

// NewExtractor returns an extractor configured from opts. It fails when the
// default sample specification is invalid.
func NewExtractor(opts ...Option) (*Extractor, error) {
	o := ApplyOptions(opts...)
	s, err := ParseSample(o.Sample)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		Sample:          s,
		ApertureSamples: o.ApertureSamples,
		BackgroundOrder: o.BackgroundOrder,
		Skip:            o.Skip,
		Workers:         o.Workers,
		Logger:          o.Logger,
	}, nil
}

// Extract returns a len(aps) x f.Cols frame with one extracted spectrum per
// row. Rows of skipped and lost apertures are zero.
func (e *Extractor) Extract(ctx context.Context, f *frame.Frame, aps []*Aperture) (*frame.Frame, error) {
	if len(aps) == 0 {
		return nil, ErrNoApertures
	}
	out := frame.New(len(aps), f.Cols)

	// Sample errors are fatal before any work starts.
	samples := make([]Sample, len(aps))
	for i, ap := range aps {
		s, err := e.sampleFor(ap)
		if err != nil {
			return nil, err
		}
		samples[i] = s
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Workers, 1))

	for i, ap := range aps {
		if e.Skip != nil && e.Skip(i, ap) {
			continue
		}
		if ap.Stage == StageLost {
			e.logger().Warn("lost aperture left empty", "aperture", ap.ID, "index", i)
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := e.extractInto(out.Row(i), f, ap, i, samples[i]); err != nil {
				return err
			}
			ap.Stage = StageExtracted
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// sampleFor returns the window used for ap.
func (e *Extractor) sampleFor(ap *Aperture) (Sample, error) {
	if !e.ApertureSamples {
		return e.Sample, nil
	}
	return sampleFor(ap, e.Sample)
}

// ExtractAperture extracts a single aperture.
func (e *Extractor) ExtractAperture(f *frame.Frame, ap *Aperture) ([]float64, error) {
	s, err := e.sampleFor(ap)
	if err != nil {
		return nil, err
	}
	dst := make([]float64, f.Cols)
	if err := e.extractInto(dst, f, ap, -1, s); err != nil {
		return nil, err
	}
	return dst, nil
}

func (e *Extractor) extractInto(dst []float64, f *frame.Frame, ap *Aperture, index int, s Sample) error {
	if ap.Trace == nil {
		return &ExtractError{Aperture: ap.ID, Index: index, Column: -1, Err: ErrNotSmoothed}
	}
	for col := range dst {
		v, err := ExtractColumn(f, *ap.Trace, s, e.BackgroundOrder, col)
		if err != nil {
			return &ExtractError{Aperture: ap.ID, Index: index, Column: col, Err: err}
		}
		dst[col] = v
	}
	return nil
}

// ExtractColumn evaluates trace at col, truncates it to a center row, takes
// the window of rows [center+LowMin, center+HighMax] in that column, removes
// the background fit and sums the signal gap.
func ExtractColumn(f *frame.Frame, trace poly.Series, s Sample, order, col int) (float64, error) {
	y := trace.Eval(float64(col))
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("%w: %g at column %d", ErrNonFiniteTrace, y, col)
	}
	center := int(y)

	window, err := f.Column(col, center+s.LowMin, center+s.HighMax+1)
	if err != nil {
		return 0, err
	}
	residual, err := FitBackground(window, s, order)
	if err != nil {
		return 0, err
	}
	signal, err := ExtractSignal(residual, s)
	if err != nil {
		return 0, err
	}
	return vecmath.Sum(signal), nil
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
