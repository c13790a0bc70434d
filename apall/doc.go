// Package apall traces and extracts the spectral orders of an echelle image.
//
// The package follows the classic IRAF apall flow:
//
//  1. [ParseDatabase] reads the aperture geometry database: one [Aperture]
//     per order with a seed center, cross-dispersion bounds and a background
//     sample specification.
//  2. [Tracer] follows each order from its seed column in both directions.
//     At every step the [Locator] sums a small block of columns into a
//     spatial profile and fits a Gaussian with Levenberg-Marquardt; the fitted
//     center becomes the guess for the next step. A fit that does not converge
//     ends that direction of the walk.
//  3. [Smooth] replaces the noisy trace points with a degree-10 Legendre
//     series over the detector columns.
//  4. [Extractor] evaluates the series at every column, cuts a window around
//     the trace, removes a Chebyshev background fitted to the flanking sample
//     bands ([FitBackground]) and sums the signal between them
//     ([ExtractSignal]).
//
// Tracing and extraction run one worker per aperture; the detector frame is
// shared read-only and each aperture is owned by exactly one worker.
//
// A [Pipeline] wires the stages together, consulting an optional
// [TraceCache] so that traced geometry can be reused across runs unless a
// retrace is requested.
package apall
