package ccd

import "errors"

// Errors returned by the calibration functions.
var (
	ErrNoFrames  = errors.New("ccd: no frames")
	ErrShape     = errors.New("ccd: frame shapes differ")
	ErrSection   = errors.New("ccd: invalid image section")
	ErrRegion    = errors.New("ccd: invalid bad pixel region")
	ErrZeroFlat  = errors.New("ccd: flat field has zero pixels")
	ErrParameter = errors.New("ccd: invalid parameter")
)
