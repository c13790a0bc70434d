package apall

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-echelle/frame"
)

// StepStatus is the outcome of one tracing step.
type StepStatus int

const (
	Found StepStatus = iota
	Lost
)

func (s StepStatus) String() string {
	if s == Found {
		return "found"
	}
	return "lost"
}

// StepResult is the outcome of locating the trace at one column. Err is set
// when Status is Lost.
type StepResult struct {
	Status StepStatus
	Point  Point
	Err    error
}

// Tracer follows each aperture across the detector by repeated centroid
// fits, stepping outward from the seed column.
type Tracer struct {
	Locator *Locator
	Step    int
	NSum    int
	// NLost is carried from the database parameters. A single lost step
	// ends a walk regardless of its value.
	NLost   int
	Workers int
	Logger  *slog.Logger
}

// NewTracer returns a tracer configured from opts.
func NewTracer(opts ...Option) *Tracer {
	o := ApplyOptions(opts...)
	return &Tracer{
		Locator: &Locator{Guess: o.InitialGuess, MaxIterations: o.MaxIterations},
		Step:    o.Step,
		NSum:    o.NSum,
		NLost:   o.NLost,
		Workers: o.Workers,
		Logger:  o.Logger,
	}
}

func (t *Tracer) box(ap *Aperture) Box {
	half := float64(t.NSum / 2)
	return Box{MinusX: -half, PlusX: half, MinusY: ap.Low.Y, PlusY: ap.High.Y}
}

// StepAt locates the trace of ap near (x, y). Fit failures and windows that
// leave the image are reported as Lost; any other error is returned.
func (t *Tracer) StepAt(f *frame.Frame, ap *Aperture, x, y float64) (StepResult, error) {
	row, err := t.Locator.Locate(f, x, y, t.box(ap))
	switch {
	case err == nil:
		return StepResult{Status: Found, Point: Point{X: x, Y: row}}, nil
	case errors.Is(err, ErrFitNotConverged), errors.Is(err, frame.ErrOutOfBounds):
		return StepResult{Status: Lost, Err: &TraceError{Aperture: ap.ID, Column: x, Err: err}}, nil
	default:
		return StepResult{}, &TraceError{Aperture: ap.ID, Column: x, Err: err}
	}
}

// walk steps from the seed by dx until the trace is lost or leaves the
// detector. It returns the points found and the result that ended the walk,
// which is Found when the edge was reached.
func (t *Tracer) walk(f *frame.Frame, ap *Aperture, seed Point, dx int) ([]Point, StepResult, error) {
	var pts []Point
	y := seed.Y
	for x := seed.X + float64(dx); x >= 0 && x < float64(f.Cols); x += float64(dx) {
		res, err := t.StepAt(f, ap, x, y)
		if err != nil {
			return pts, res, err
		}
		if res.Status == Lost {
			return pts, res, nil
		}
		pts = append(pts, res.Point)
		y = res.Point.Y
	}
	return pts, StepResult{Status: Found}, nil
}

// TraceAperture fits the seed column of ap and walks right then left. The
// returned points are ordered seed, right walk, left walk. A seed that
// cannot be fitted yields a Lost result and no points.
func (t *Tracer) TraceAperture(f *frame.Frame, ap *Aperture) ([]Point, StepResult, error) {
	seed, err := t.StepAt(f, ap, ap.Center.X, ap.Center.Y)
	if err != nil || seed.Status == Lost {
		return nil, seed, err
	}

	step := max(t.Step, 1)
	right, rres, err := t.walk(f, ap, seed.Point, step)
	if err != nil {
		return nil, rres, err
	}
	left, lres, err := t.walk(f, ap, seed.Point, -step)
	if err != nil {
		return nil, lres, err
	}

	for _, r := range []StepResult{rres, lres} {
		if r.Status == Lost {
			t.logger().Debug("trace walk lost", "aperture", ap.ID, "error", r.Err)
		}
	}

	pts := make([]Point, 0, 1+len(right)+len(left))
	pts = append(pts, seed.Point)
	pts = append(pts, right...)
	pts = append(pts, left...)
	return pts, seed, nil
}

// Trace traces every aperture concurrently and records the points on each.
// Apertures whose seed is lost are marked StageLost and logged; the call
// only fails for unexpected errors or cancellation.
func (t *Tracer) Trace(ctx context.Context, f *frame.Frame, aps []*Aperture) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(t.Workers, 1))

	for _, ap := range aps {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pts, seed, err := t.TraceAperture(f, ap)
			if err != nil {
				return err
			}
			if seed.Status == Lost {
				ap.MarkLost(seed.Err)
				t.logger().Warn("aperture lost at seed", "aperture", ap.ID, "error", seed.Err)
				return nil
			}
			ap.SetTrace(pts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (t *Tracer) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}
