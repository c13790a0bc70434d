// Package frame provides the in-memory detector image shared by the
// calibration and extraction stages.
//
// A [Frame] is a dense row-major array of float64 pixels. Rows run along the
// spatial (cross-dispersion) axis and columns along the dispersion axis, which
// matches the NAXIS2/NAXIS1 layout of a FITS primary image. Each frame carries
// an ordered [Header] of key/value cards so that header edits survive a
// read/modify/write cycle.
//
// Accessors that cut windows out of a frame never clamp or wrap: a request
// that reaches outside the pixel grid fails with a [*BoundsError] wrapping
// [ErrOutOfBounds].
package frame
