package apall

import (
	"fmt"

	"github.com/cwbudde/algo-echelle/poly"
)

// Point is one traced centroid: X is the column, Y the fitted row.
type Point struct {
	X, Y float64
}

// Coord is an (x, y) pair from the geometry database.
type Coord struct {
	X, Y float64
}

// Stage records how far an aperture has progressed through the reduction.
type Stage int

const (
	StageSeeded Stage = iota
	StageTraced
	StageSmoothed
	StageExtracted
	// StageLost marks an aperture whose seed centroid could not be fitted.
	StageLost
)

func (s Stage) String() string {
	switch s {
	case StageSeeded:
		return "seeded"
	case StageTraced:
		return "traced"
	case StageSmoothed:
		return "smoothed"
	case StageExtracted:
		return "extracted"
	case StageLost:
		return "lost"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Background holds the background block of a database record. Only Sample
// and Order drive the fit; the rejection parameters are carried so that a
// database can be written back unchanged.
type Background struct {
	XMin       float64
	XMax       float64
	Function   string
	Order      int
	Sample     string
	NAverage   int
	NIterate   int
	LowReject  float64
	HighReject float64
	Grow       float64
}

// Curve is the stored trace function block of a database record.
type Curve struct {
	N      int
	Params []float64
}

// Aperture describes one spectral order. The geometry fields come from the
// database; Points and Trace are filled in by the tracer and the smoother.
type Aperture struct {
	Comment string // leading "#" line of the record
	Begin   string // "begin aperture ..." line

	Image      string
	ID         int
	Beam       int
	Center     Coord
	Low        Coord
	High       Coord
	Background Background
	Axis       int
	Curve      Curve

	Stage  Stage
	Points []Point
	Trace  *poly.Series
	// Lost holds the seed failure when Stage is StageLost.
	Lost error
}

// SetTrace records traced points and advances the stage.
func (ap *Aperture) SetTrace(pts []Point) {
	ap.Points = pts
	ap.Trace = nil
	ap.Lost = nil
	ap.Stage = StageTraced
}

// MarkLost records a seed failure.
func (ap *Aperture) MarkLost(err error) {
	ap.Points = nil
	ap.Trace = nil
	ap.Lost = err
	ap.Stage = StageLost
}

// Reset drops traced and fitted state, returning the aperture to its seed.
func (ap *Aperture) Reset() {
	ap.Points = nil
	ap.Trace = nil
	ap.Lost = nil
	ap.Stage = StageSeeded
}

// Columns returns the X coordinate of every traced point.
func (ap *Aperture) Columns() []float64 {
	out := make([]float64, len(ap.Points))
	for i, p := range ap.Points {
		out[i] = p.X
	}
	return out
}

// Rows returns the Y coordinate of every traced point.
func (ap *Aperture) Rows() []float64 {
	out := make([]float64, len(ap.Points))
	for i, p := range ap.Points {
		out[i] = p.Y
	}
	return out
}
