package apall

import (
	"errors"
	"fmt"
)

// Errors returned by the aperture tracing and extraction stages.
var (
	ErrFitNotConverged = errors.New("apall: centroid fit did not converge")
	ErrInvalidSample   = errors.New("apall: invalid background sample")
	ErrWindowLength    = errors.New("apall: window length does not match background sample")
	ErrMalformedRecord = errors.New("apall: malformed database record")
	ErrNotTraced       = errors.New("apall: aperture has not been traced")
	ErrNotSmoothed     = errors.New("apall: aperture has no smoothed trace")
	ErrNonFiniteTrace  = errors.New("apall: trace model is not finite")
	ErrCacheMismatch   = errors.New("apall: cached traces do not match database")
	ErrNoApertures     = errors.New("apall: no apertures")
)

// SampleError reports a background sample specification that cannot be used.
type SampleError struct {
	Spec string
	Err  error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("apall: background sample %q: %v", e.Spec, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }

// DatabaseError identifies the record and line of a malformed database entry.
// Record and Line are 1-based.
type DatabaseError struct {
	Record int
	Line   int
	Field  string
	Err    error
}

func (e *DatabaseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("apall: database record %d line %d: %v", e.Record, e.Line, e.Err)
	}
	return fmt.Sprintf("apall: database record %d line %d (%s): %v", e.Record, e.Line, e.Field, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// TraceError ties a tracing failure to its aperture.
type TraceError struct {
	Aperture int
	Column   float64
	Err      error
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("apall: trace aperture %d at column %g: %v", e.Aperture, e.Column, e.Err)
}

func (e *TraceError) Unwrap() error { return e.Err }

// ExtractError ties an extraction failure to its aperture and column.
type ExtractError struct {
	Aperture int
	Index    int
	Column   int
	Err      error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("apall: extract aperture %d (row %d) column %d: %v", e.Aperture, e.Index, e.Column, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }
