package apall

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-echelle/poly"
)

// Smooth fits a Legendre series of the given degree to the traced points of
// ap over domain and stores it on the aperture. No points are rejected.
func Smooth(ap *Aperture, degree int, domain [2]float64) error {
	if ap.Stage == StageSeeded || len(ap.Points) == 0 {
		return fmt.Errorf("%w: aperture %d", ErrNotTraced, ap.ID)
	}

	s, err := poly.FitLegendre(ap.Columns(), ap.Rows(), degree, domain)
	if err != nil {
		return fmt.Errorf("apall: smooth aperture %d: %w", ap.ID, err)
	}
	if !s.Finite(int(domain[0]), int(domain[1])) {
		return fmt.Errorf("%w: aperture %d", ErrNonFiniteTrace, ap.ID)
	}

	ap.Trace = &s
	ap.Stage = StageSmoothed
	return nil
}

// SmoothAll smooths every traced aperture over the column domain
// [0, width-1]. Lost apertures are left unsmoothed, and an aperture whose
// points cannot be fitted is marked lost instead of failing the batch.
func SmoothAll(aps []*Aperture, degree, width int) error {
	if width < 1 {
		return fmt.Errorf("apall: smooth: width %d", width)
	}
	domain := [2]float64{0, float64(width - 1)}
	for _, ap := range aps {
		if ap.Stage == StageLost {
			continue
		}
		if err := Smooth(ap, degree, domain); err != nil {
			if errors.Is(err, ErrNotTraced) {
				return err
			}
			ap.MarkLost(err)
		}
	}
	return nil
}
