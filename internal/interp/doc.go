// Package interp resamples detector rows and columns.
//
// Two kernels are available:
//
//   - [Linear]: 2-point linear interpolation
//   - [Cubic]:  4-point cubic Hermite ([Hermite4])
//
// [Zoom] stretches a line onto a new length while keeping both end samples
// fixed; samples needed beyond either end repeat the nearest edge value.
package interp
